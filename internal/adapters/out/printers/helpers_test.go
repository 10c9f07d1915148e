package printers_test

import (
	"context"
	"testing"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPrinter(t *testing.T, kind printing.TransportKind, address string, autoCut bool) printing.PrinterConfig {
	t.Helper()
	params := printing.PrinterConfigParams{
		ID:      kernel.NewUUID(),
		Kind:    kind,
		Address: address,
		AutoCut: autoCut,
		Density: 6,
		Enabled: true,
	}
	if kind == printing.CloudAPI {
		params.CredentialRef = "printnode-main"
	}
	p, err := printing.NewPrinterConfig(params)
	require.NoError(t, err)
	return p
}

func newTicket(merchantID kernel.UUID) printing.Ticket {
	return printing.Ticket{
		Kind:        printing.KOT,
		OrderID:     kernel.NewUUID(),
		OrderNumber: "A1001",
		MerchantID:  merchantID,
		Columns:     32,
		Lines:       []string{"KOT #A1001", "2 x Masala Dosa", "  * no onion"},
	}
}

type MockCredentialResolver struct{ mock.Mock }

func (m *MockCredentialResolver) Resolve(ctx context.Context, merchantID kernel.UUID, ref string) (string, error) {
	args := m.Called(ctx, merchantID, ref)
	return args.String(0), args.Error(1)
}
