package orderrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{
		db:  db,
		now: time.Now,
	}
}

// Add saves a new order and its line items.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order, items []order.LineItem) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	dto := fromDomain(aggregate, items)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetItems returns the order's line items by position.
func (r *GormOrderRepository) GetItems(ctx context.Context, orderID kernel.UUID) ([]order.LineItem, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []LineItemDTO
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Order("position").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	items := make([]order.LineItem, 0, len(dtos))
	for _, dto := range dtos {
		item, err := itemToDomain(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListByMerchant returns the merchant's open orders plus those that turned
// terminal within the last since window.
func (r *GormOrderRepository) ListByMerchant(
	ctx context.Context,
	merchantID kernel.UUID,
	since time.Duration,
) ([]*order.Order, error) {
	if err := merchantID.Validate(); err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-since).UTC()
	terminal := []string{order.Completed.String(), order.Cancelled.String()}

	var dtos []OrderDTO
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID.Bytes()).
		Where("(status NOT IN ? OR status_changed_at >= ?)", terminal, cutoff).
		Order("placed_at, id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus writes the new status only if the stored one still equals from.
func (r *GormOrderRepository) UpdateStatus(
	ctx context.Context,
	id kernel.UUID,
	from, to order.Status,
	at time.Time,
) error {
	if err := errors.Join(id.Validate(), from.Validate(), to.Validate()); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND status = ?", id.Bytes(), from.String()).
		Updates(map[string]any{
			"status":            to.String(),
			"status_changed_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: order %s is %s, expected %s", ports.ErrStatusConflict, id, current.Status(), from)
}

// MarkPointsCredited flips points_credited on a completed order exactly once.
func (r *GormOrderRepository) MarkPointsCredited(ctx context.Context, id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND status = ? AND points_credited = ?", id.Bytes(), order.Completed.String(), false).
		Update("points_credited", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.PointsCredited() {
		return order.ErrPointsAlreadyCredited
	}
	return order.ErrPointsNotCreditable
}

// AssignStaff sets staff_id on a non-terminal order.
func (r *GormOrderRepository) AssignStaff(ctx context.Context, id kernel.UUID, staffID kernel.UUID) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = current.AssignStaff(staffID); err != nil {
		return err
	}

	raw := staffID.Bytes()
	return r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Update("staff_id", &raw).Error
}
