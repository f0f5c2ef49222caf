package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kartlab/catalogd/internal/domain"
)

var catalogHeader = []string{
	"id", "entity_type", "name", "brand", "category",
	"price", "image_url", "affiliate_url", "specifications", "version",
}

// WriteCatalogCSV streams the catalog as CSV. Specifications are emitted
// as a JSON object in a single column so re-import round-trips.
func WriteCatalogCSV(w io.Writer, items []domain.CatalogItem) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(catalogHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, item := range items {
		row, err := catalogRow(item)
		if err != nil {
			return err
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", item.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func catalogRow(item domain.CatalogItem) ([]string, error) {
	price := ""
	if item.Price != nil {
		price = strconv.FormatFloat(*item.Price, 'f', 2, 64)
	}

	specs := "{}"
	if len(item.Specifications) > 0 {
		encoded, err := json.Marshal(item.Specifications)
		if err != nil {
			return nil, fmt.Errorf("failed to encode specifications for %s: %w", item.ID, err)
		}
		specs = string(encoded)
	}

	return []string{
		item.ID.String(),
		string(item.EntityType),
		item.Name,
		item.Brand,
		item.Category,
		price,
		item.ImageURL,
		item.AffiliateURL,
		specs,
		strconv.FormatInt(item.Version, 10),
	}, nil
}
