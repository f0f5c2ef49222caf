package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartlab/catalogd/internal/domain"
)

type catalogRepository struct {
	db querier
}

// NewCatalogRepository wires a repository backed by pgxpool.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{db: pool}
}

const catalogColumns = `id, entity_type, name, brand, category, price, image_url, affiliate_url,
	specifications, source_proposal_id, version, created_at, updated_at`

func (r *catalogRepository) List(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+catalogColumns+` FROM catalog_items ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	items := []domain.CatalogItem{}
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog items: %w", err)
	}
	return items, nil
}

func (r *catalogRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.CatalogItem, error) {
	row := r.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = $1`, id)
	item, err := scanCatalogItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CatalogItem{}, domain.ErrNotFound
		}
		return domain.CatalogItem{}, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return item, nil
}

func (r *catalogRepository) Create(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	specsJSON, err := item.Specifications.MarshalJSONB()
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("failed to marshal specifications: %w", err)
	}

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO catalog_items
		   (id, entity_type, name, brand, category, price, image_url, affiliate_url, specifications, source_proposal_id, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		 RETURNING `+catalogColumns,
		item.ID, item.EntityType, item.Name, nullable(item.Brand), item.Category,
		item.Price, nullable(item.ImageURL), nullable(item.AffiliateURL), specsJSON, item.SourceProposalID,
	)
	created, err := scanCatalogItem(row)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("failed to create catalog item: %w", err)
	}
	return created, nil
}

func (r *catalogRepository) UpdateVersioned(ctx context.Context, item domain.CatalogItem, expectedVersion int64) (domain.CatalogItem, bool, error) {
	specsJSON, err := item.Specifications.MarshalJSONB()
	if err != nil {
		return domain.CatalogItem{}, false, fmt.Errorf("failed to marshal specifications: %w", err)
	}

	row := r.db.QueryRow(
		ctx,
		`UPDATE catalog_items
		 SET name = $3, brand = $4, category = $5, price = $6, image_url = $7,
		     affiliate_url = $8, specifications = $9, source_proposal_id = $10,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING `+catalogColumns,
		item.ID, expectedVersion,
		item.Name, nullable(item.Brand), item.Category, item.Price,
		nullable(item.ImageURL), nullable(item.AffiliateURL), specsJSON, item.SourceProposalID,
	)
	updated, err := scanCatalogItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CatalogItem{}, false, nil
		}
		return domain.CatalogItem{}, false, fmt.Errorf("failed to update catalog item: %w", err)
	}
	return updated, true, nil
}

func scanCatalogItem(row pgx.Row) (domain.CatalogItem, error) {
	var (
		item         domain.CatalogItem
		brand        *string
		imageURL     *string
		affiliateURL *string
		specsJSON    []byte
	)
	if err := row.Scan(
		&item.ID,
		&item.EntityType,
		&item.Name,
		&brand,
		&item.Category,
		&item.Price,
		&imageURL,
		&affiliateURL,
		&specsJSON,
		&item.SourceProposalID,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return domain.CatalogItem{}, err
	}

	if brand != nil {
		item.Brand = *brand
	}
	if imageURL != nil {
		item.ImageURL = *imageURL
	}
	if affiliateURL != nil {
		item.AffiliateURL = *affiliateURL
	}
	var err error
	item.Specifications, err = domain.BagFromJSONB(specsJSON)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("failed to decode specifications: %w", err)
	}
	return item, nil
}
