package queries

import (
	"testing"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGetActiveOrdersQuery_DefaultsToOpenStatuses(t *testing.T) {
	merchantID := kernel.NewUUID()

	q, err := NewGetActiveOrdersQuery(merchantID)

	require.NoError(t, err)
	assert.NoError(t, q.Validate())
	assert.True(t, q.MerchantID().IsEqual(merchantID))
	assert.Equal(t,
		[]order.Status{order.Received, order.Confirmed, order.Preparing, order.OnTheWay},
		q.Statuses(),
	)
}

func TestNewGetActiveOrdersQuery_ExplicitStatuses(t *testing.T) {
	q, err := NewGetActiveOrdersQuery(kernel.NewUUID(), order.Completed, order.Cancelled)

	require.NoError(t, err)
	assert.Equal(t, []order.Status{order.Completed, order.Cancelled}, q.Statuses())

	got := q.Statuses()
	got[0] = order.Received
	assert.Equal(t, order.Completed, q.Statuses()[0], "statuses are copied out")
}

func TestNewGetActiveOrdersQuery_Errors(t *testing.T) {
	_, err := NewGetActiveOrdersQuery(kernel.UUID{})
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = NewGetActiveOrdersQuery(kernel.NewUUID(), order.Received, order.Unknown)
	assert.Error(t, err)
}

func TestGetActiveOrdersQuery_ZeroValueIsNotConstructed(t *testing.T) {
	assert.ErrorIs(t, GetActiveOrdersQuery{}.Validate(), ErrGetActiveOrdersQueryIsNotConstructed)
}
