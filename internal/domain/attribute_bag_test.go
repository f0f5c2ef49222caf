package domain

import "testing"

func TestFloatParsesHumanEnteredValues(t *testing.T) {
	cases := map[string]float64{
		"169.99":    169.99,
		"$169.99":   169.99,
		"1,299.00":  1299.00,
		"212 cc":    212,
		"6.5hp":     6.5,
		"-5":        -5,
		"  42.0  ":  42,
		"£19.99":    19.99,
	}
	for input, want := range cases {
		bag := AttributeBag{"v": input}
		got, ok := bag.Float("v")
		if !ok || got != want {
			t.Fatalf("Float(%q) = %v, %v; want %v", input, got, ok, want)
		}
	}

	for _, input := range []string{"", "n/a", "call for price"} {
		bag := AttributeBag{"v": input}
		if _, ok := bag.Float("v"); ok {
			t.Fatalf("Float(%q) should not parse", input)
		}
	}
}

func TestFloatAcceptsNativeNumbers(t *testing.T) {
	bag := AttributeBag{"f": 1.5, "i": 7, "nil": nil}
	if v, ok := bag.Float("f"); !ok || v != 1.5 {
		t.Fatalf("expected 1.5, got %v %v", v, ok)
	}
	if v, ok := bag.Float("i"); !ok || v != 7 {
		t.Fatalf("expected 7, got %v %v", v, ok)
	}
	if _, ok := bag.Float("nil"); ok {
		t.Fatalf("nil value must not parse")
	}
	if _, ok := bag.Float("absent"); ok {
		t.Fatalf("absent key must not parse")
	}
}

func TestMarshalJSONBNilBag(t *testing.T) {
	var bag AttributeBag
	data, err := bag.MarshalJSONB()
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("nil bag must serialize as empty object, got %s", data)
	}
}

func TestBagFromJSONBRoundTrip(t *testing.T) {
	original := AttributeBag{"name": "Predator 212", "price": 169.99}
	data, err := original.MarshalJSONB()
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	decoded, err := BagFromJSONB(data)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if decoded.String("name") != "Predator 212" {
		t.Fatalf("unexpected decoded bag: %v", decoded)
	}
	if v, ok := decoded.Float("price"); !ok || v != 169.99 {
		t.Fatalf("expected price to survive round trip, got %v", v)
	}
}
