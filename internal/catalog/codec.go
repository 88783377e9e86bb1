package catalog

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire messages of hipstershop.ProductCatalogService.ListProducts.
//
//	message Empty {}
//	message Money { string currency_code = 1; int64 units = 2; int32 nanos = 3; }
//	message Product { string id = 1; string name = 2; string description = 3;
//	                  string picture = 4; Money price_usd = 5; repeated string categories = 6; }
//	message ListProductsResponse { repeated Product products = 1; }
type (
	emptyMessage         struct{}
	listProductsResponse struct {
		Products []Product
	}
)

const (
	productIDField          protowire.Number = 1
	productNameField        protowire.Number = 2
	productDescriptionField protowire.Number = 3
	productPriceField       protowire.Number = 5
	moneyUnitsField         protowire.Number = 2
	responseProductsField   protowire.Number = 1
)

// wireCodec encodes the handful of catalog messages without generated stubs.
type wireCodec struct{}

func (wireCodec) Name() string { return "proto" }

func (wireCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *emptyMessage:
		return []byte{}, nil
	case *listProductsResponse:
		var b []byte
		for _, p := range m.Products {
			b = protowire.AppendTag(b, responseProductsField, protowire.BytesType)
			b = protowire.AppendBytes(b, appendProduct(nil, p))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("catalog codec: cannot marshal %T", v)
	}
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *emptyMessage:
		return nil
	case *listProductsResponse:
		return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num != responseProductsField || typ != protowire.BytesType {
				return protowire.ConsumeFieldValue(num, typ, b), nil
			}
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			p, err := decodeProduct(raw)
			if err != nil {
				return 0, err
			}
			m.Products = append(m.Products, p)
			return n, nil
		})
	default:
		return fmt.Errorf("catalog codec: cannot unmarshal into %T", v)
	}
}

func appendProduct(b []byte, p Product) []byte {
	b = protowire.AppendTag(b, productIDField, protowire.BytesType)
	b = protowire.AppendString(b, p.ID)
	b = protowire.AppendTag(b, productNameField, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)
	b = protowire.AppendTag(b, productDescriptionField, protowire.BytesType)
	b = protowire.AppendString(b, p.Description)

	var money []byte
	money = protowire.AppendTag(money, 1, protowire.BytesType)
	money = protowire.AppendString(money, "USD")
	money = protowire.AppendTag(money, moneyUnitsField, protowire.VarintType)
	money = protowire.AppendVarint(money, uint64(p.PriceUnits))

	b = protowire.AppendTag(b, productPriceField, protowire.BytesType)
	return protowire.AppendBytes(b, money)
}

func decodeProduct(data []byte) (Product, error) {
	var p Product
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case productIDField:
			p.ID = string(raw)
		case productNameField:
			p.Name = string(raw)
		case productDescriptionField:
			p.Description = string(raw)
		case productPriceField:
			units, err := decodeMoneyUnits(raw)
			if err != nil {
				return 0, err
			}
			p.PriceUnits = units
		}
		return n, nil
	})
	return p, err
}

func decodeMoneyUnits(data []byte) (int64, error) {
	var units int64
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == moneyUnitsField && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			units = int64(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return units, err
}

// walkFields calls fn for every field in data. fn receives the bytes after the
// tag and returns how many it consumed, or a negative protowire error code.
func walkFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("catalog codec: %w", protowire.ParseError(n))
		}
		data = data[n:]
		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("catalog codec: %w", protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}
