// Package printerrepo persists merchant printing profiles and printer credentials.
package printerrepo

import (
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"

	"github.com/google/uuid"
)

// MerchantDTO is the "merchants" row: the part of the merchant record dispatch reads.
type MerchantDTO struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Name       string             `gorm:"not null"`
	ManualOnly bool               `gorm:"not null;default:false"`
	Printers   []PrinterConfigDTO `gorm:"foreignKey:MerchantID;constraint:OnDelete:CASCADE"`
}

func (MerchantDTO) TableName() string {
	return "merchants"
}

// PrinterConfigDTO is one "printer_configs" row.
type PrinterConfigDTO struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Position      int       `gorm:"not null"`
	Kind          string    `gorm:"not null"`
	Address       string
	CredentialRef string
	PaperWidth    int  `gorm:"not null"`
	Density       int  `gorm:"not null"`
	AutoCut       bool `gorm:"not null"`
	Enabled       bool `gorm:"not null"`
}

func (PrinterConfigDTO) TableName() string {
	return "printer_configs"
}

// CredentialDTO is one "printer_credentials" row. Secrets are scoped by merchant.
type CredentialDTO struct {
	MerchantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Ref        string    `gorm:"primaryKey"`
	Secret     string    `gorm:"not null"`
}

func (CredentialDTO) TableName() string {
	return "printer_credentials"
}

func fromDomain(profile printing.MerchantProfile) MerchantDTO {
	dto := MerchantDTO{
		ID:         profile.MerchantID().Bytes(),
		Name:       profile.Name(),
		ManualOnly: profile.ManualOnly(),
	}
	for i, p := range profile.Printers() {
		dto.Printers = append(dto.Printers, PrinterConfigDTO{
			ID:            p.ID().Bytes(),
			MerchantID:    dto.ID,
			Position:      i,
			Kind:          p.Kind().String(),
			Address:       p.Address(),
			CredentialRef: p.CredentialRef(),
			PaperWidth:    p.PaperWidth(),
			Density:       p.Density(),
			AutoCut:       p.AutoCut(),
			Enabled:       p.Enabled(),
		})
	}
	return dto
}

func toDomain(dto MerchantDTO) (printing.MerchantProfile, error) {
	merchantID, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return printing.MerchantProfile{}, err
	}

	printers := make([]printing.PrinterConfig, 0, len(dto.Printers))
	for _, p := range dto.Printers {
		id, idErr := kernel.UUIDFromBytes(p.ID[:])
		if idErr != nil {
			return printing.MerchantProfile{}, idErr
		}
		kind, kindErr := printing.ParseTransportKind(p.Kind)
		if kindErr != nil {
			return printing.MerchantProfile{}, kindErr
		}
		config, cfgErr := printing.NewPrinterConfig(printing.PrinterConfigParams{
			ID:            id,
			Kind:          kind,
			Address:       p.Address,
			CredentialRef: p.CredentialRef,
			PaperWidth:    p.PaperWidth,
			Density:       p.Density,
			AutoCut:       p.AutoCut,
			Enabled:       p.Enabled,
		})
		if cfgErr != nil {
			return printing.MerchantProfile{}, cfgErr
		}
		printers = append(printers, config)
	}

	return printing.NewMerchantProfile(merchantID, dto.Name, dto.ManualOnly, printers)
}
