package variants

import (
	"testing"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxesPrefersExplicitAttributes(t *testing.T) {
	def := &models.VariantDefinition{
		Attributes: []models.VariantAxis{
			{Name: "Shoe Size", Values: []string{"8", "9"}},
			{Name: "Strap Color", Values: []string{"Black"}},
			{Name: "Material", Values: nil},
		},
		Sizes:  []string{"S", "M"},
		Colors: []string{"Red"},
	}

	axes := Axes(def)
	require.Len(t, axes, 2, "empty axes should be dropped and legacy fields ignored")
	assert.Equal(t, "shoe_size", axes[0].Name)
	assert.Equal(t, "strap_color", axes[1].Name)
}

func TestAxesLegacyFallback(t *testing.T) {
	def := &models.VariantDefinition{
		Sizes:  []string{"S", "M", "L"},
		Colors: []string{"Black", "White"},
	}

	axes := Axes(def)
	require.Len(t, axes, 2)
	assert.Equal(t, "size", axes[0].Name)
	assert.Equal(t, []string{"S", "M", "L"}, axes[0].Values)
	assert.Equal(t, "color", axes[1].Name)
}

func TestSignatureSortsAxes(t *testing.T) {
	sel := Selection{"size": "M", "color": "Black"}
	assert.Equal(t, "color=Black|size=M", Signature(sel))
	assert.Equal(t, "", Signature(Selection{}))
}

func TestToggleDeselectsSameValue(t *testing.T) {
	sel := Selection{}
	sel.Toggle("Size", "M")
	require.Equal(t, "M", sel["size"])

	sel.Toggle("Size", "M")
	_, ok := sel["size"]
	assert.False(t, ok, "re-selecting the same value must clear the axis")

	sel.Toggle("size", "L")
	sel.Toggle("size", "l")
	_, ok = sel["size"]
	assert.False(t, ok, "toggle comparison is case-insensitive")
}

func TestResolvePriceExactThenCaseInsensitive(t *testing.T) {
	def := &models.VariantDefinition{
		PriceOverrides: map[string]int64{
			"color=Black|size=M": 2599,
			"color=white|size=s": 2199,
		},
	}

	exact := ResolvePrice(def, Selection{"size": "M", "color": "Black"}, 1999)
	assert.Equal(t, int64(2599), exact)

	fallback := ResolvePrice(def, Selection{"size": "S", "color": "White"}, 1999)
	assert.Equal(t, int64(2199), fallback)

	miss := ResolvePrice(def, Selection{"size": "XL"}, 1999)
	assert.Equal(t, int64(1999), miss)
}

func TestResolvePriceRejectsNegativeOverride(t *testing.T) {
	def := &models.VariantDefinition{
		PriceOverrides: map[string]int64{"size=M": -100},
	}
	assert.Equal(t, int64(1500), ResolvePrice(def, Selection{"size": "M"}, 1500))
}

func TestResolveStock(t *testing.T) {
	noMap := &models.VariantDefinition{}
	assert.Nil(t, ResolveStock(noMap, Selection{"size": "M"}), "missing map means unconstrained")

	def := &models.VariantDefinition{
		StockOverrides: map[string]int{
			"size=M": 3,
			"size=L": 0,
		},
	}

	m := ResolveStock(def, Selection{"size": "M"})
	require.NotNil(t, m)
	assert.Equal(t, 3, *m)

	l := ResolveStock(def, Selection{"size": "l"})
	require.NotNil(t, l, "case-insensitive fallback should match")
	assert.Equal(t, 0, *l)

	assert.Nil(t, ResolveStock(def, Selection{"size": "XL"}), "no match means unconstrained")
}

func TestIsOptionAvailable(t *testing.T) {
	def := &models.VariantDefinition{
		StockOverrides: map[string]int{
			"color=Black|size=M": 0,
			"color=Black|size=L": 5,
		},
	}
	sel := Selection{"color": "Black"}

	assert.False(t, IsOptionAvailable(def, sel, "size", "M"))
	assert.True(t, IsOptionAvailable(def, sel, "size", "L"))
	assert.True(t, IsOptionAvailable(def, sel, "size", "XL"), "unknown combination is unconstrained")

	_, touched := sel["size"]
	assert.False(t, touched, "preview must not mutate the caller's selection")
}

func TestUnknownSelectionRoundTrip(t *testing.T) {
	def := &models.VariantDefinition{
		PriceOverrides: map[string]int64{"size=M": 2100},
		StockOverrides: map[string]int{"size=M": 2},
	}
	sel := Selection{"fit": "Relaxed"}

	assert.Equal(t, int64(1800), ResolvePrice(def, sel, 1800))
	assert.Nil(t, ResolveStock(def, sel))
}
