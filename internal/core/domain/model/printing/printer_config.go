package printing

import (
	"errors"
	"net"
	"strings"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/errs"
	"cafe/internal/pkg/guard"
)

// ErrPrinterConfigIsNotConstructed is returned when a PrinterConfig literal is used.
var ErrPrinterConfigIsNotConstructed = errors.New("PrinterConfig must be created via NewPrinterConfig constructor")

const (
	PaperWidth58mm = 58
	PaperWidth80mm = 80

	MinDensity     = 1
	MaxDensity     = 8
	DefaultDensity = 4
)

// PrinterConfig is one administrator-managed printer registration of a merchant.
// It is read-only to dispatch.
//
// Address meaning depends on Kind:
//   - LocalNetwork: "host:port" of the raw print server
//   - DirectSerial: device path with optional baud rate, e.g. "/dev/ttyUSB0@19200"
//   - CloudAPI: the printer id at the cloud provider; credentials are looked up
//     separately by CredentialRef at send time
//   - ManualFallback: ignored
type PrinterConfig struct {
	id            kernel.UUID
	kind          TransportKind
	address       string
	credentialRef string
	paperWidth    int
	density       int
	autoCut       bool
	enabled       bool

	guard guard.ConstructorGuard
}

// PrinterConfigParams groups the inputs of NewPrinterConfig.
type PrinterConfigParams struct {
	ID            kernel.UUID
	Kind          TransportKind
	Address       string
	CredentialRef string
	PaperWidth    int
	Density       int
	AutoCut       bool
	Enabled       bool
}

// NewPrinterConfig validates p and builds a PrinterConfig. A zero density
// defaults to DefaultDensity and a zero paper width to 58mm.
func NewPrinterConfig(p PrinterConfigParams) (PrinterConfig, error) {
	if p.Density == 0 {
		p.Density = DefaultDensity
	}
	if p.PaperWidth == 0 {
		p.PaperWidth = PaperWidth58mm
	}
	p.Address = strings.TrimSpace(p.Address)

	if err := errors.Join(
		p.ID.Validate(),
		p.Kind.Validate(),
		validateAddress(p.Kind, p.Address),
		validateCredential(p.Kind, p.CredentialRef),
		validatePaperWidth(p.PaperWidth),
		validateDensity(p.Density),
	); err != nil {
		return PrinterConfig{}, err
	}

	return PrinterConfig{
		id:            p.ID,
		kind:          p.Kind,
		address:       p.Address,
		credentialRef: strings.TrimSpace(p.CredentialRef),
		paperWidth:    p.PaperWidth,
		density:       p.Density,
		autoCut:       p.AutoCut,
		enabled:       p.Enabled,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (c PrinterConfig) Validate() error {
	return c.guard.Validate(ErrPrinterConfigIsNotConstructed)
}

func (c PrinterConfig) ID() kernel.UUID       { return c.id }
func (c PrinterConfig) Kind() TransportKind   { return c.kind }
func (c PrinterConfig) Address() string       { return c.address }
func (c PrinterConfig) CredentialRef() string { return c.credentialRef }
func (c PrinterConfig) PaperWidth() int       { return c.paperWidth }
func (c PrinterConfig) Density() int          { return c.density }
func (c PrinterConfig) AutoCut() bool         { return c.autoCut }
func (c PrinterConfig) Enabled() bool         { return c.enabled }

// Columns is the number of monospaced characters that fit on one line.
func (c PrinterConfig) Columns() int {
	return ColumnsFor(c.paperWidth)
}

// ColumnsFor maps a paper width in millimetres to characters per line.
func ColumnsFor(paperWidth int) int {
	if paperWidth >= PaperWidth80mm {
		return 48
	}
	return 32
}

func validateAddress(kind TransportKind, address string) error {
	switch kind {
	case LocalNetwork:
		if _, _, err := net.SplitHostPort(address); err != nil {
			return errs.NewValueIsInvalidErrorWithCause("printer address", err)
		}
	case DirectSerial, CloudAPI:
		if address == "" {
			return errs.NewValueIsRequiredError("printer address for " + kind.String())
		}
	case ManualFallback, UnknownTransport:
	}
	return nil
}

func validateCredential(kind TransportKind, ref string) error {
	if kind == CloudAPI && strings.TrimSpace(ref) == "" {
		return errs.NewValueIsRequiredError("credential reference for cloud_api")
	}
	return nil
}

func validatePaperWidth(width int) error {
	if width != PaperWidth58mm && width != PaperWidth80mm {
		return errs.NewValueIsOutOfRangeError("paper width", width, PaperWidth58mm, PaperWidth80mm)
	}
	return nil
}

func validateDensity(density int) error {
	if density < MinDensity || density > MaxDensity {
		return errs.NewValueIsOutOfRangeError("density", density, MinDensity, MaxDensity)
	}
	return nil
}
