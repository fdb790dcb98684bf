package property

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostledger/service-rental/internal/common/domain"
)

func TestNewProperty_PromotesFirstPriceToDefault(t *testing.T) {
	p, err := NewProperty(uuid.New(), Details{Name: "Sea View"}, []Price{
		{Name: "Weekday", Amount: 80},
		{Name: "Weekend", Amount: 120},
	})
	require.NoError(t, err)

	def, ok := p.DefaultPrice()
	require.True(t, ok)
	assert.Equal(t, "Weekday", def.Name)
	for _, pr := range p.Prices() {
		assert.NotEqual(t, uuid.Nil, pr.ID)
	}
}

func TestNewProperty_KeepsFlaggedDefault(t *testing.T) {
	p, err := NewProperty(uuid.New(), Details{Name: "Loft"}, []Price{
		{Name: "Standard", Amount: 80},
		{Name: "Peak", Amount: 150, IsDefault: true},
	})
	require.NoError(t, err)

	def, ok := p.DefaultPrice()
	require.True(t, ok)
	assert.Equal(t, 150.0, def.Amount)
}

func TestNewProperty_RejectsTwoDefaults(t *testing.T) {
	_, err := NewProperty(uuid.New(), Details{Name: "Loft"}, []Price{
		{Name: "A", Amount: 80, IsDefault: true},
		{Name: "B", Amount: 90, IsDefault: true},
	})
	assert.True(t, domain.IsValidation(err))
}

func TestNewProperty_Validation(t *testing.T) {
	cases := map[string]struct {
		owner   uuid.UUID
		details Details
		prices  []Price
	}{
		"missing owner":   {uuid.Nil, Details{Name: "x"}, nil},
		"blank name":      {uuid.New(), Details{Name: "  "}, nil},
		"negative rooms":  {uuid.New(), Details{Name: "x", Bedrooms: -1}, nil},
		"negative amount": {uuid.New(), Details{Name: "x"}, []Price{{Name: "p", Amount: -1}}},
		"unnamed price":   {uuid.New(), Details{Name: "x"}, []Price{{Amount: 10}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewProperty(tc.owner, tc.details, tc.prices)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestProperty_NoPricesHasNoDefault(t *testing.T) {
	p, err := NewProperty(uuid.New(), Details{Name: "Cabin"}, nil)
	require.NoError(t, err)

	_, ok := p.DefaultPrice()
	assert.False(t, ok)

	_, err = p.SelectPrice(nil)
	assert.True(t, domain.IsValidation(err))
}

func TestProperty_SelectPrice(t *testing.T) {
	p, err := NewProperty(uuid.New(), Details{Name: "Cabin"}, []Price{
		{Name: "Standard", Amount: 100},
		{Name: "Friends", Amount: 60},
	})
	require.NoError(t, err)
	friends := p.Prices()[1]

	got, err := p.SelectPrice(&friends.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Amount)

	got, err = p.SelectPrice(nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Amount)

	unknown := uuid.New()
	_, err = p.SelectPrice(&unknown)
	assert.True(t, domain.IsValidation(err))
}

func TestProperty_UpdateBumpsVersion(t *testing.T) {
	p, err := NewProperty(uuid.New(), Details{Name: "Cabin"}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Update(Details{Name: "Cabin 2", Color: "#ff0000"}, []Price{{Name: "Std", Amount: 70}}))
	assert.Equal(t, int64(2), p.Version())
	assert.Equal(t, "Cabin 2", p.Name())
	assert.Equal(t, "#ff0000", p.Color())

	assert.Error(t, p.Update(Details{Name: ""}, nil))
	assert.Equal(t, int64(2), p.Version())
}
