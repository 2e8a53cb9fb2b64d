package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	DefaultRevenuePerStudent = decimal.RequireFromString("28.00")
	DefaultFixedCostPerClass = decimal.RequireFromString("78.00")
)

// Role ("cargo") is the pay grade for teaching one class
type Role struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Name       string          `json:"name" gorm:"not null;uniqueIndex;size:100"`
	HourlyRate decimal.Decimal `json:"hourlyRate" gorm:"type:numeric(10,2);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string {
	return "cargos"
}

// Rank ("patente") is the per-attending-student bonus rate
type Rank struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Name       string          `json:"name" gorm:"not null;uniqueIndex;size:100"`
	Multiplier decimal.Decimal `json:"multiplier" gorm:"type:numeric(10,2);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Rank) TableName() string {
	return "patentes"
}

type Modality struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;uniqueIndex;size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Modality) TableName() string {
	return "modalidades"
}

// FixedValues holds the global constants of every financial formula.
// The most recently updated row is the live one.
type FixedValues struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	RevenuePerStudent decimal.Decimal `json:"revenuePerStudent" gorm:"type:numeric(10,2);not null"`
	FixedCostPerClass decimal.Decimal `json:"fixedCostPerClass" gorm:"type:numeric(10,2);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

func (FixedValues) TableName() string {
	return "valores_fixos"
}

func DefaultFixedValues() FixedValues {
	return FixedValues{
		RevenuePerStudent: DefaultRevenuePerStudent,
		FixedCostPerClass: DefaultFixedCostPerClass,
	}
}
