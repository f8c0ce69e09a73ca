// Package variants resolves effective unit price and stock for a product's
// selected options. Resolution sits on the product-display hot path, so every
// function degrades to a safe default (base price, unconstrained stock)
// instead of returning an error.
package variants

import (
	"sort"
	"strings"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
)

const (
	legacySizeAxis  = "size"
	legacyColorAxis = "color"
)

// NormalizeAxisKey case-folds an axis name and collapses whitespace runs to
// underscores, producing a stable selection key ("Shoe Size" -> "shoe_size").
func NormalizeAxisKey(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "_")
}

// Selection maps normalized axis keys to the chosen value.
type Selection map[string]string

// Toggle applies the storefront's select/deselect gesture: choosing the value
// already selected for an axis clears that axis instead of re-confirming it.
func (s Selection) Toggle(axis, value string) {
	key := NormalizeAxisKey(axis)
	if key == "" {
		return
	}
	if current, ok := s[key]; ok && strings.EqualFold(current, value) {
		delete(s, key)
		return
	}
	s[key] = value
}

// Clone returns an independent copy of the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Axes produces the canonical list of axes to render. An explicit attribute
// list wins; legacy sizes/colors shorthand is the fallback. Axes without any
// values are dropped.
func Axes(def *models.VariantDefinition) []models.VariantAxis {
	if def == nil {
		return nil
	}

	var axes []models.VariantAxis
	if len(def.Attributes) > 0 {
		for _, attr := range def.Attributes {
			key := NormalizeAxisKey(attr.Name)
			if key == "" || len(attr.Values) == 0 {
				continue
			}
			axes = append(axes, models.VariantAxis{Name: key, Values: attr.Values})
		}
		return axes
	}

	if len(def.Sizes) > 0 {
		axes = append(axes, models.VariantAxis{Name: legacySizeAxis, Values: def.Sizes})
	}
	if len(def.Colors) > 0 {
		axes = append(axes, models.VariantAxis{Name: legacyColorAxis, Values: def.Colors})
	}
	return axes
}

// Signature renders a selection as sorted "axis=value" pairs joined with "|".
// Axis keys are already normalized; values keep their case so exact override
// keys match first.
func Signature(sel Selection) string {
	if len(sel) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+sel[k])
	}
	return strings.Join(parts, "|")
}

// ResolvePrice returns the override price for the selection, or baseCents
// when no usable override exists. Lookups never mutate the override map.
func ResolvePrice(def *models.VariantDefinition, sel Selection, baseCents int64) int64 {
	if def == nil || len(def.PriceOverrides) == 0 {
		return baseCents
	}
	override, ok := lookupPrice(def.PriceOverrides, Signature(sel))
	if !ok || override < 0 {
		return baseCents
	}
	return override
}

// ResolveStock returns the remaining stock for the selection, or nil when
// stock is unconstrained (no override map, or no matching entry).
func ResolveStock(def *models.VariantDefinition, sel Selection) *int {
	if def == nil || def.StockOverrides == nil {
		return nil
	}
	sig := Signature(sel)
	if qty, ok := def.StockOverrides[sig]; ok {
		out := qty
		return &out
	}
	lower := strings.ToLower(sig)
	for key, qty := range def.StockOverrides {
		if strings.ToLower(key) == lower {
			out := qty
			return &out
		}
	}
	return nil
}

// IsOptionAvailable previews candidateValue on the given axis and reports
// whether the resulting combination is purchasable.
func IsOptionAvailable(def *models.VariantDefinition, sel Selection, axis, candidateValue string) bool {
	preview := sel.Clone()
	preview[NormalizeAxisKey(axis)] = candidateValue
	stock := ResolveStock(def, preview)
	return stock == nil || *stock > 0
}

func lookupPrice(overrides map[string]int64, sig string) (int64, bool) {
	if price, ok := overrides[sig]; ok {
		return price, true
	}
	lower := strings.ToLower(sig)
	for key, price := range overrides {
		if strings.ToLower(key) == lower {
			return price, true
		}
	}
	return 0, false
}
