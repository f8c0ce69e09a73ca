package enums

import "fmt"

// OrderProvenance distinguishes optimistic local orders from
// backend-authoritative orders. It is decided once at creation time and
// never re-inferred from the order's shape.
type OrderProvenance string

const (
	OrderProvenanceLocal  OrderProvenance = "local"
	OrderProvenanceRemote OrderProvenance = "remote"
)

var validOrderProvenances = []OrderProvenance{
	OrderProvenanceLocal,
	OrderProvenanceRemote,
}

// IsValid reports whether the value is a known OrderProvenance.
func (p OrderProvenance) IsValid() bool {
	for _, candidate := range validOrderProvenances {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseOrderProvenance converts raw input into an OrderProvenance.
func ParseOrderProvenance(value string) (OrderProvenance, error) {
	for _, candidate := range validOrderProvenances {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order provenance %q", value)
}
