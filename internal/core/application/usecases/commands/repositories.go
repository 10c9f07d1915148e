// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// Every command is built by a constructor that validates its input; handlers
// re-check the constructor guard before doing any work.
package commands

import (
	"context"

	"cafe/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// ProfileRepoFactory provides access to merchant profiles within a transaction.
	ProfileRepoFactory interface {
		MerchantProfileRepository() ports.MerchantProfileRepository
	}

	// OrderUoW manages transactions for order-only operations.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   err = uow.OrderRepository().UpdateStatus(ctx, id, from, to, at)
	//
	//   err = uow.Commit(ctx)
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// ProfileUoW manages transactions for printer configuration changes.
	ProfileUoW interface {
		TxManager
		ProfileRepoFactory
	}

	// ProfileUoWFactory creates new profile unit of work instances.
	ProfileUoWFactory interface {
		Create() ProfileUoW
	}
)
