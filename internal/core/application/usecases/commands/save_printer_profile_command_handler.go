package commands

import (
	"context"

	"cafe/internal/core/domain/model/kernel"
)

// ProfileInvalidator drops cached printer configuration of one merchant.
type ProfileInvalidator interface {
	Invalidate(merchantID kernel.UUID)
}

// SavePrinterProfileCommandHandler stores a merchant profile and, once the
// transaction is committed, invalidates the dispatch engine's cached copy so
// the next dispatch reads the new printers.
type SavePrinterProfileCommandHandler struct {
	uowFactory  ProfileUoWFactory
	invalidator ProfileInvalidator
}

func NewSavePrinterProfileCommandHandler(
	uowFactory ProfileUoWFactory,
	invalidator ProfileInvalidator,
) SavePrinterProfileCommandHandler {
	return SavePrinterProfileCommandHandler{
		uowFactory:  uowFactory,
		invalidator: invalidator,
	}
}

func (h *SavePrinterProfileCommandHandler) Handle(ctx context.Context, cmd SavePrinterProfileCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	profile := cmd.Profile()
	if err := uow.MerchantProfileRepository().Save(ctx, profile); err != nil {
		return err
	}

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	h.invalidator.Invalidate(profile.MerchantID())
	return nil
}
