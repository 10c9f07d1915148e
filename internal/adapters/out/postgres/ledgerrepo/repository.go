// Package ledgerrepo is the durable print ledger: one row per automatically
// dispatched order, claimed with INSERT ... ON CONFLICT DO NOTHING.
package ledgerrepo

import (
	"context"
	"time"

	"cafe/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	stateReserved   = "reserved"
	stateDispatched = "dispatched"
)

// PrintRecordDTO is one "print_ledger" row.
type PrintRecordDTO struct {
	OrderID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	State        string    `gorm:"not null"`
	ReservedAt   time.Time `gorm:"not null;index"`
	DispatchedAt *time.Time
}

func (PrintRecordDTO) TableName() string {
	return "print_ledger"
}

// GormPrintLedger implements ports.PrintLedger on a shared table so several
// processes agree on who prints.
type GormPrintLedger struct {
	db *gorm.DB
}

func NewGormPrintLedger(db *gorm.DB) *GormPrintLedger {
	return &GormPrintLedger{db: db}
}

// Reserve inserts the order's row; the insert that lands wins.
func (l *GormPrintLedger) Reserve(ctx context.Context, orderID kernel.UUID, at time.Time) (bool, error) {
	if err := orderID.Validate(); err != nil {
		return false, err
	}

	record := PrintRecordDTO{
		OrderID:    orderID.Bytes(),
		State:      stateReserved,
		ReservedAt: at.UTC(),
	}
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (l *GormPrintLedger) Commit(ctx context.Context, orderID kernel.UUID, at time.Time) error {
	dispatchedAt := at.UTC()
	return l.db.WithContext(ctx).
		Model(&PrintRecordDTO{}).
		Where("order_id = ?", orderID.Bytes()).
		Updates(map[string]any{"state": stateDispatched, "dispatched_at": &dispatchedAt}).Error
}

// Release drops a reservation that never printed. Committed rows are kept.
func (l *GormPrintLedger) Release(ctx context.Context, orderID kernel.UUID) error {
	return l.db.WithContext(ctx).
		Where("order_id = ? AND state = ?", orderID.Bytes(), stateReserved).
		Delete(&PrintRecordDTO{}).Error
}

func (l *GormPrintLedger) Evict(ctx context.Context, before time.Time) (int, error) {
	result := l.db.WithContext(ctx).
		Where("reserved_at < ?", before.UTC()).
		Delete(&PrintRecordDTO{})
	return int(result.RowsAffected), result.Error
}
