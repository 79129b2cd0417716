package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valles-rodes/internal/models"
)

func TestParseTireSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.TireSize
		ok    bool
	}{
		{"canonical", "205/55 R16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"lower case", "205/55r16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"spaces everywhere", " 225 / 45 r 17 ", models.TireSize{Width: 225, Aspect: 45, Rim: 17}, true},
		{"embedded in text", "mis ruedas son 195/65R15 creo", models.TireSize{Width: 195, Aspect: 65, Rim: 15}, true},
		{"no-break space", "205/55\u00a0R16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"thin space", "205\u2009/55 R16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"vertical tab", "205/55\vR16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"byte order mark", "\ufeff205/55\ufeffR16", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"trailing garbage", "205/55R16 91V", models.TireSize{Width: 205, Aspect: 55, Rim: 16}, true},
		{"empty", "", models.TireSize{}, false},
		{"letters", "abc", models.TireSize{}, false},
		{"two digit width", "20/55R16", models.TireSize{}, false},
		{"missing R", "205/5516", models.TireSize{}, false},
		{"one digit rim", "205/55R6", models.TireSize{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTireSize(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPriceFromSize(t *testing.T) {
	tests := []struct {
		size models.TireSize
		want int
	}{
		{models.TireSize{Width: 205, Aspect: 55, Rim: 16}, 81},
		{models.TireSize{Width: 185, Aspect: 65, Rim: 14}, 55},
		{models.TireSize{Width: 225, Aspect: 40, Rim: 18}, 122},
		{models.TireSize{Width: 185, Aspect: 60, Rim: 21}, 85},
		{models.TireSize{Width: 100, Aspect: 80, Rim: 14}, 45},
		{models.TireSize{Width: 190, Aspect: 55, Rim: 16}, 77}, // 76.5 rounds up
	}

	for _, tc := range tests {
		t.Run(FormatTireSize(tc.size), func(t *testing.T) {
			assert.Equal(t, tc.want, PriceFromSize(tc.size))
		})
	}
}

func TestPriceFromSize_MonotonicInWidth(t *testing.T) {
	for _, rim := range []int{13, 14, 15, 16, 17, 18, 19, 20, 22} {
		prev := 0
		for width := 100; width <= 999; width++ {
			price := PriceFromSize(models.TireSize{Width: width, Aspect: 55, Rim: rim})
			require.GreaterOrEqual(t, price, prev, "rim %d width %d", rim, width)
			require.GreaterOrEqual(t, price, minTirePrice)
			prev = price
		}
	}
}

func TestQuoteOptions_TierOrdering(t *testing.T) {
	for _, rim := range []int{14, 15, 16, 17, 18, 19, 20, 23} {
		for width := 100; width <= 400; width += 5 {
			opts := QuoteOptions(models.TireSize{Width: width, Aspect: 50, Rim: rim})
			require.Len(t, opts, 3)
			assert.Equal(t, models.TierPremium, opts[0].Tier)
			assert.Equal(t, models.TierOptimal, opts[1].Tier)
			assert.Equal(t, models.TierEconomy, opts[2].Tier)
			assert.Greater(t, opts[0].Price, opts[1].Price)
			assert.GreaterOrEqual(t, opts[1].Price, opts[2].Price)
			assert.GreaterOrEqual(t, opts[2].Price, minEconomy)
		}
	}
}

func TestTireOptions(t *testing.T) {
	opts := TireOptions(models.ServiceTires, "205/55 R16")
	require.Len(t, opts, 3)
	assert.Equal(t, 121, opts[0].Price)
	assert.Equal(t, "24–48 h", opts[0].ETA)
	assert.Equal(t, 81, opts[1].Price)
	assert.Equal(t, "24 h", opts[1].ETA)
	assert.Equal(t, 61, opts[2].Price)
	assert.Equal(t, "48–72 h", opts[2].ETA)

	assert.Empty(t, TireOptions(models.ServiceMaintenance, "205/55 R16"))
	assert.Empty(t, TireOptions(models.ServicePickup, "205/55 R16"))
	assert.Empty(t, TireOptions(models.ServiceTires, "not a size"))
	assert.Empty(t, TireOptions("", ""))
}

func TestTireOptions_EconomyFloor(t *testing.T) {
	// base is floored at 45, so economy would be 25 without its own floor
	opts := TireOptions(models.ServiceTires, "100/80R14")
	require.Len(t, opts, 3)
	assert.Equal(t, 85, opts[0].Price)
	assert.Equal(t, 45, opts[1].Price)
	assert.Equal(t, 39, opts[2].Price)
}

func TestTireOptions_Idempotent(t *testing.T) {
	first := TireOptions(models.ServiceTires, "225/45 R17")
	second := TireOptions(models.ServiceTires, "225/45 R17")
	assert.Equal(t, first, second)
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "Alta gama", TierLabel(models.TierPremium))
	assert.Equal(t, "Óptimo", TierLabel(models.TierOptimal))
	assert.Equal(t, "Económico", TierLabel(models.TierEconomy))
	assert.Equal(t, "other", TierLabel("other"))
}
