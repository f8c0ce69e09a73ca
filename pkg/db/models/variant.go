package models

// VariantAxis is one option dimension (size, color, or any custom attribute)
// with its ordered list of allowed values.
type VariantAxis struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// VariantDefinition describes a product's option axes plus optional
// per-combination price and stock overrides keyed by variant signature.
// Legacy products carry only Sizes/Colors shorthand instead of Attributes.
type VariantDefinition struct {
	Attributes       []VariantAxis     `json:"attributes,omitempty"`
	Sizes            []string          `json:"sizes,omitempty"`
	Colors           []string          `json:"colors,omitempty"`
	DefaultSelection map[string]string `json:"default_selection,omitempty"`
	PriceOverrides   map[string]int64  `json:"price_overrides,omitempty"`
	StockOverrides   map[string]int    `json:"stock_overrides,omitempty"`
}
