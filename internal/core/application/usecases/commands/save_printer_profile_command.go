package commands

import (
	"errors"

	"cafe/internal/core/domain/model/printing"
	"cafe/internal/pkg/guard"
)

var ErrSavePrinterProfileCommandIsNotConstructed = errors.New(
	"SavePrinterProfileCommand must be created via NewSavePrinterProfileCommand constructor",
)

// SavePrinterProfileCommand replaces a merchant's printing configuration.
// The profile is validated by its own constructor before it gets here.
type SavePrinterProfileCommand struct { //nolint:recvcheck //using for validation
	profile printing.MerchantProfile

	guard guard.ConstructorGuard
}

func NewSavePrinterProfileCommand(profile printing.MerchantProfile) (SavePrinterProfileCommand, error) {
	if err := profile.Validate(); err != nil {
		return SavePrinterProfileCommand{}, err
	}

	return SavePrinterProfileCommand{
		profile: profile,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c SavePrinterProfileCommand) Validate() error {
	return c.guard.Validate(ErrSavePrinterProfileCommandIsNotConstructed)
}

func (c SavePrinterProfileCommand) Profile() printing.MerchantProfile { return c.profile }
