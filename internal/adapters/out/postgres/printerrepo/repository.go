package printerrepo

import (
	"context"
	"errors"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMerchantProfileRepository implements ports.MerchantProfileRepository using GORM.
type GormMerchantProfileRepository struct {
	db *gorm.DB
}

func NewGormMerchantProfileRepository(db *gorm.DB) *GormMerchantProfileRepository {
	return &GormMerchantProfileRepository{db: db}
}

// Get loads the merchant and its printers in registration order.
func (r *GormMerchantProfileRepository) Get(ctx context.Context, merchantID kernel.UUID) (printing.MerchantProfile, error) {
	if err := merchantID.Validate(); err != nil {
		return printing.MerchantProfile{}, err
	}

	var dto MerchantDTO
	err := r.db.WithContext(ctx).
		Preload("Printers", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&dto, "id = ?", merchantID.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return printing.MerchantProfile{}, errs.NewObjectNotFoundError("merchant", merchantID.String())
		}
		return printing.MerchantProfile{}, err
	}

	return toDomain(dto)
}

// Save upserts the merchant row and replaces its printers.
func (r *GormMerchantProfileRepository) Save(ctx context.Context, profile printing.MerchantProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	dto := fromDomain(profile)
	printers := dto.Printers
	dto.Printers = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "manual_only"}),
		}).Create(&dto).Error; err != nil {
			return err
		}
		if err := tx.Where("merchant_id = ?", dto.ID).Delete(&PrinterConfigDTO{}).Error; err != nil {
			return err
		}
		if len(printers) == 0 {
			return nil
		}
		return tx.Create(&printers).Error
	})
}

// MerchantIDs lists every configured merchant in name order.
func (r *GormMerchantProfileRepository) MerchantIDs(ctx context.Context) ([]kernel.UUID, error) {
	var rows []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&MerchantDTO{}).Order("name").Pluck("id", &rows).Error; err != nil {
		return nil, err
	}

	ids := make([]kernel.UUID, 0, len(rows))
	for _, row := range rows {
		id, err := kernel.UUIDFromBytes(row[:])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GormCredentialResolver reads merchant-scoped printer secrets on every call.
type GormCredentialResolver struct {
	db *gorm.DB
}

func NewGormCredentialResolver(db *gorm.DB) *GormCredentialResolver {
	return &GormCredentialResolver{db: db}
}

// Resolve returns the secret stored under (merchantID, ref).
func (r *GormCredentialResolver) Resolve(ctx context.Context, merchantID kernel.UUID, ref string) (string, error) {
	var dto CredentialDTO
	err := r.db.WithContext(ctx).
		First(&dto, "merchant_id = ? AND ref = ?", merchantID.Bytes(), ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.NewObjectNotFoundError("printer credential", ref)
		}
		return "", err
	}
	return dto.Secret, nil
}

// StoreCredential upserts a merchant secret.
func (r *GormCredentialResolver) StoreCredential(ctx context.Context, merchantID kernel.UUID, ref, secret string) error {
	dto := CredentialDTO{MerchantID: merchantID.Bytes(), Ref: ref, Secret: secret}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "ref"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret"}),
	}).Create(&dto).Error
}
