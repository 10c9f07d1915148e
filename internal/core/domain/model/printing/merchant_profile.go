package printing

import (
	"errors"
	"sort"
	"strings"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/errs"
)

// MerchantProfile is everything dispatch needs to know about a merchant:
// its display name (which selects the receipt template), whether it prints
// by hand only, and its registered printers.
type MerchantProfile struct {
	merchantID kernel.UUID
	name       string
	manualOnly bool
	printers   []PrinterConfig

	isConstructed bool
}

var ErrMerchantProfileIsNotConstructed = errors.New("MerchantProfile must be created via NewMerchantProfile constructor")

func NewMerchantProfile(merchantID kernel.UUID, name string, manualOnly bool, printers []PrinterConfig) (MerchantProfile, error) {
	if err := merchantID.Validate(); err != nil {
		return MerchantProfile{}, errs.NewValueIsRequiredErrorWithCause("merchant id", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return MerchantProfile{}, errs.NewValueIsRequiredError("merchant name")
	}
	for _, p := range printers {
		if err := p.Validate(); err != nil {
			return MerchantProfile{}, err
		}
	}

	copied := make([]PrinterConfig, len(printers))
	copy(copied, printers)

	return MerchantProfile{
		merchantID:    merchantID,
		name:          name,
		manualOnly:    manualOnly,
		printers:      copied,
		isConstructed: true,
	}, nil
}

func (m MerchantProfile) Validate() error {
	if !m.isConstructed {
		return ErrMerchantProfileIsNotConstructed
	}
	return nil
}

func (m MerchantProfile) MerchantID() kernel.UUID { return m.merchantID }
func (m MerchantProfile) Name() string            { return m.name }
func (m MerchantProfile) ManualOnly() bool        { return m.manualOnly }

// Printers returns a copy of every registered printer, enabled or not.
func (m MerchantProfile) Printers() []PrinterConfig {
	out := make([]PrinterConfig, len(m.printers))
	copy(out, m.printers)
	return out
}

// Chain returns the enabled printers in fallback order. Printers of the same
// kind keep their registration order.
func (m MerchantProfile) Chain() []PrinterConfig {
	chain := make([]PrinterConfig, 0, len(m.printers))
	for _, p := range m.printers {
		if p.Enabled() {
			chain = append(chain, p)
		}
	}
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Kind().Priority() < chain[j].Kind().Priority()
	})
	return chain
}

// Printer returns the registered printer of the given kind, if any.
func (m MerchantProfile) Printer(kind TransportKind) (PrinterConfig, bool) {
	for _, p := range m.Chain() {
		if p.Kind() == kind {
			return p, true
		}
	}
	return PrinterConfig{}, false
}

// Columns is the layout width used when rendering for this merchant: the
// narrowest paper across its enabled printers, so a ticket fits whichever
// transport ends up printing it.
func (m MerchantProfile) Columns() int {
	columns := 0
	for _, p := range m.Chain() {
		if c := p.Columns(); columns == 0 || c < columns {
			columns = c
		}
	}
	if columns == 0 {
		return ColumnsFor(PaperWidth58mm)
	}
	return columns
}
