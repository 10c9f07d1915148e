package ports

import (
	"context"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
)

// MerchantProfileRepository looks up merchant printing configuration.
type MerchantProfileRepository interface {
	// Get returns the merchant's profile with all registered printers.
	// Returns *errs.ObjectNotFoundError for unknown merchants.
	Get(ctx context.Context, merchantID kernel.UUID) (printing.MerchantProfile, error)

	// Save replaces the merchant's profile and printers.
	Save(ctx context.Context, profile printing.MerchantProfile) error
}

// CredentialResolver returns the secret behind a merchant-scoped credential
// reference. Implementations must not return another merchant's secret.
type CredentialResolver interface {
	Resolve(ctx context.Context, merchantID kernel.UUID, ref string) (string, error)
}
