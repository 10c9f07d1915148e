// Package orderrepo persists orders and their line items with GORM.
package orderrepo

import (
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is the "orders" row. Status and channel are stored by wire name so
// row-change notifications are readable without a lookup table. The json tags
// match the column names row_to_json emits.
type OrderDTO struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Number          string          `gorm:"not null;uniqueIndex:idx_orders_merchant_number" json:"number"`
	MerchantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_merchant_number;index:idx_orders_merchant_status" json:"merchant_id"`
	Status          string          `gorm:"not null;index:idx_orders_merchant_status" json:"status"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	PlacedAt        time.Time       `gorm:"not null" json:"placed_at"`
	StatusChangedAt time.Time       `gorm:"not null" json:"status_changed_at"`
	Channel         string          `gorm:"not null" json:"channel"`
	Location        string          `json:"location"`
	ContactName     string          `json:"contact_name"`
	ContactPhone    string          `json:"contact_phone"`
	StaffID         *uuid.UUID      `gorm:"type:uuid" json:"staff_id"`
	PointsCredited  bool            `gorm:"not null;default:false" json:"points_credited"`
	Items           []LineItemDTO   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// LineItemDTO is one "order_line_items" row.
type LineItemDTO struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Name        string          `gorm:"not null"`
	Description string
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Instruction string
}

func (LineItemDTO) TableName() string {
	return "order_line_items"
}

func fromDomain(o *order.Order, items []order.LineItem) OrderDTO {
	var staffID *uuid.UUID
	if id := o.Staff(); id != nil {
		raw := id.Bytes()
		staffID = &raw
	}

	dto := OrderDTO{
		ID:              o.ID().Bytes(),
		Number:          o.Number(),
		MerchantID:      o.MerchantID().Bytes(),
		Status:          o.Status().String(),
		Total:           o.Total().Decimal(),
		PlacedAt:        o.PlacedAt(),
		StatusChangedAt: o.StatusChangedAt(),
		Channel:         o.Fulfillment().Channel.String(),
		Location:        o.Fulfillment().Location,
		ContactName:     o.Contact().Name,
		ContactPhone:    o.Contact().Phone,
		StaffID:         staffID,
		PointsCredited:  o.PointsCredited(),
	}

	for i, item := range items {
		dto.Items = append(dto.Items, LineItemDTO{
			OrderID:     dto.ID,
			Position:    i,
			Name:        item.Name(),
			Description: item.Description(),
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice().Decimal(),
			Instruction: item.Instruction(),
		})
	}

	return dto
}

// ToSnapshot converts a row into an order snapshot without building the aggregate.
func ToSnapshot(dto OrderDTO) (order.Snapshot, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return order.Snapshot{}, err
	}
	merchantID, err := kernel.UUIDFromBytes(dto.MerchantID[:])
	if err != nil {
		return order.Snapshot{}, err
	}
	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return order.Snapshot{}, err
	}
	channel, err := order.ParseChannel(dto.Channel)
	if err != nil {
		return order.Snapshot{}, err
	}
	total, err := kernel.NewMoney(dto.Total)
	if err != nil {
		return order.Snapshot{}, err
	}

	var staffID *kernel.UUID
	if dto.StaffID != nil {
		sID, staffErr := kernel.UUIDFromBytes((*dto.StaffID)[:])
		if staffErr != nil {
			return order.Snapshot{}, staffErr
		}
		staffID = &sID
	}

	return order.Snapshot{
		ID:              id,
		Number:          dto.Number,
		MerchantID:      merchantID,
		Status:          status,
		Total:           total,
		PlacedAt:        dto.PlacedAt.UTC(),
		StatusChangedAt: dto.StatusChangedAt.UTC(),
		Fulfillment:     order.Fulfillment{Channel: channel, Location: dto.Location},
		Contact:         order.Contact{Name: dto.ContactName, Phone: dto.ContactPhone},
		StaffID:         staffID,
		PointsCredited:  dto.PointsCredited,
	}, nil
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	snap, err := ToSnapshot(dto)
	if err != nil {
		return nil, err
	}
	return order.RestoreOrder(snap)
}

func itemToDomain(dto LineItemDTO) (order.LineItem, error) {
	price, err := kernel.NewMoney(dto.UnitPrice)
	if err != nil {
		return order.LineItem{}, err
	}
	return order.NewLineItem(dto.Name, dto.Description, dto.Quantity, price, dto.Instruction)
}
