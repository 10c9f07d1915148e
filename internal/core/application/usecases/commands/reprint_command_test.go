package commands_test

import (
	"context"
	"testing"

	dispatch "cafe/internal/core/application/printing"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReprinter struct{ mock.Mock }

func (m *MockReprinter) Reprint(ctx context.Context, orderID kernel.UUID, kinds ...printing.TicketKind) dispatch.Result {
	args := m.Called(ctx, orderID, kinds)
	return args.Get(0).(dispatch.Result)
}

func TestNewReprintCommand(t *testing.T) {
	id := kernel.NewUUID()

	tests := []struct {
		name  string
		kinds []string
		want  []printing.TicketKind
	}{
		{name: "no kinds", kinds: nil, want: []printing.TicketKind{}},
		{name: "receipt only", kinds: []string{"Receipt"}, want: []printing.TicketKind{printing.Receipt}},
		{name: "duplicates collapse", kinds: []string{"kot", "KOT", "receipt"}, want: []printing.TicketKind{printing.KOT, printing.Receipt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := commands.NewReprintCommand(id, tt.kinds...)
			require.NoError(t, err)
			assert.Equal(t, id, cmd.OrderID())
			assert.Equal(t, tt.want, cmd.Kinds())
		})
	}
}

func TestNewReprintCommand_UnknownKind(t *testing.T) {
	_, err := commands.NewReprintCommand(kernel.NewUUID(), "kot", "invoice")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestReprintCommandHandler_Handle(t *testing.T) {
	ctx := t.Context()
	id := kernel.NewUUID()
	cmd, err := commands.NewReprintCommand(id, "receipt")
	require.NoError(t, err)

	want := dispatch.Result{Outcome: dispatch.Printed, OrderID: id}
	reprinter := new(MockReprinter)
	reprinter.On("Reprint", ctx, id, []printing.TicketKind{printing.Receipt}).Return(want).Once()

	h := commands.NewReprintCommandHandler(reprinter)
	got, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	reprinter.AssertExpectations(t)
}

func TestReprintCommandHandler_Handle_ValidationError(t *testing.T) {
	reprinter := new(MockReprinter)
	h := commands.NewReprintCommandHandler(reprinter)

	_, err := h.Handle(t.Context(), commands.ReprintCommand{})
	require.ErrorIs(t, err, commands.ErrReprintCommandIsNotConstructed)
	reprinter.AssertNotCalled(t, "Reprint", mock.Anything, mock.Anything, mock.Anything)
}
