package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavePriceListRequest creates (ID == 0) or edits a vendor or shipping price
// list together with its full detail set; details are reconciled against the
// persisted ones.
type SavePriceListRequest struct {
	ID           int64                `json:"id"`
	Counterparty string               `json:"counterparty" validate:"required,max=20"`
	StartDate    time.Time            `json:"startDate" validate:"required"`
	EndDate      time.Time            `json:"endDate" validate:"required"`
	Active       bool                 `json:"active"`
	Details      []SaveComponentInput `json:"details" validate:"required,min=1,dive"`
}

type SaveComponentInput struct {
	ID            int64           `json:"id"`
	Route         string          `json:"route" validate:"required,max=20"`
	Port          string          `json:"port" validate:"required,max=20"`
	ContainerSize string          `json:"containerSize" validate:"required,max=20"`
	ContainerType string          `json:"containerType" validate:"required,max=20"`
	ServiceType   string          `json:"serviceType" validate:"required,max=30"`
	BaseRate      decimal.Decimal `json:"baseRate"`
	THC           decimal.Decimal `json:"thc"`
	BLFee         decimal.Decimal `json:"blFee"`
	SealFee       decimal.Decimal `json:"sealFee"`
	LoLo          decimal.Decimal `json:"lolo"`
	Storage       decimal.Decimal `json:"storage"`
	Active        bool            `json:"active"`
}

type PriceListDTO struct {
	ID           int64          `json:"id"`
	Kind         ListKind       `json:"kind"`
	Number       string         `json:"number"`
	Counterparty string         `json:"counterparty"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Active       bool           `json:"active"`
	Effective    bool           `json:"effective"`
	Details      []ComponentDTO `json:"details"`
}

type ComponentDTO struct {
	ID            int64           `json:"id"`
	Route         string          `json:"route"`
	Port          string          `json:"port"`
	ContainerSize string          `json:"containerSize"`
	ContainerType string          `json:"containerType"`
	ServiceType   string          `json:"serviceType"`
	BaseRate      decimal.Decimal `json:"baseRate"`
	THC           decimal.Decimal `json:"thc"`
	BLFee         decimal.Decimal `json:"blFee"`
	SealFee       decimal.Decimal `json:"sealFee"`
	LoLo          decimal.Decimal `json:"lolo"`
	Storage       decimal.Decimal `json:"storage"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	Active        bool            `json:"active"`
	Effective     bool            `json:"effective"`
}
