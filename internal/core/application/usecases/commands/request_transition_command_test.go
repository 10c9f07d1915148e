package commands_test

import (
	"testing"
	"time"

	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestTransitionCommand(t *testing.T) {
	id := kernel.NewUUID()
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	cmd, err := commands.NewRequestTransitionCommand(id, order.Preparing, at)
	require.NoError(t, err)
	assert.Equal(t, id, cmd.OrderID())
	assert.Equal(t, order.Preparing, cmd.Target())
	assert.Equal(t, at, cmd.RequestedAt())
	require.NoError(t, cmd.Validate())
}

func TestNewRequestTransitionCommand_InvalidInput(t *testing.T) {
	_, err := commands.NewRequestTransitionCommand(kernel.UUID{}, order.Unknown, time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestRequestTransitionCommand_ZeroValueFailsValidation(t *testing.T) {
	var cmd commands.RequestTransitionCommand
	require.ErrorIs(t, cmd.Validate(), commands.ErrRequestTransitionCommandIsNotConstructed)
}
