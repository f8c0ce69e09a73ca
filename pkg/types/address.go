package types

import "strings"

// Address is the shipping address snapshot carried on an order. It is
// serialized as plain JSON, both in the ledger and on the wire.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Validate reports whether the required fields are present.
func (a Address) Validate() bool {
	return strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.PostalCode) != ""
}
