package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexNotReadyError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("query failed: %w", &IndexNotReadyError{Index: "idx_bookings_property_stay"})

	assert.True(t, errors.Is(err, ErrIndexNotReady))

	var target *IndexNotReadyError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "idx_bookings_property_stay", target.Index)
}

func TestIndexNotReadyError_UnwrapsCause(t *testing.T) {
	cause := errors.New("hint provided does not correspond to an existing index")
	err := &IndexNotReadyError{Index: "idx", Reference: "create it", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create it")
}

func TestOp_Valid(t *testing.T) {
	for _, op := range []Op{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte} {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Op("like").Valid())
}

func TestUnsupportedFilter(t *testing.T) {
	err := UnsupportedFilter(Eq("colour", "red"))
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
	assert.Contains(t, err.Error(), "colour eq red")
}
