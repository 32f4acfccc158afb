package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ItsMalma/fiems-sub000/internal/pricing"
)

type SaveQuotationRequest struct {
	ID        int64           `json:"id"`
	Shipper   string          `json:"shipper" validate:"required,max=20"`
	Marketing string          `json:"marketing" validate:"required,max=20"`
	StartDate time.Time       `json:"startDate" validate:"required"`
	EndDate   time.Time       `json:"endDate" validate:"required"`
	Active    bool            `json:"active"`
	Details   []SaveLineInput `json:"details" validate:"required,min=1,dive"`
}

type SaveLineInput struct {
	ID            int64  `json:"id"`
	Route         string `json:"route" validate:"required,max=20"`
	Port          string `json:"port" validate:"required,max=20"`
	DeliveryTo    string `json:"deliveryTo" validate:"required,max=20"`
	ContainerSize string `json:"containerSize" validate:"required,max=20"`
	ContainerType string `json:"containerType" validate:"required,max=20"`
	ServiceType   string `json:"serviceType" validate:"required,max=30"`

	OriginVendor      string `json:"originVendor" validate:"required,max=20"`
	DestinationVendor string `json:"destinationVendor" validate:"required,max=20"`
	ShippingCompany   string `json:"shippingCompany" validate:"required,max=20"`

	Surcharges        pricing.Surcharges `json:"surcharges"`
	TaxSwitch         pricing.Switch     `json:"taxSwitch" validate:"omitempty,oneof=include exclude not_applicable"`
	TaxSurcharge      decimal.Decimal    `json:"taxSurcharge"`
	InsuranceSwitch   pricing.Switch     `json:"insuranceSwitch" validate:"omitempty,oneof=include exclude not_applicable"`
	InsuranceAmount   decimal.Decimal    `json:"insuranceAmount"`
	InsuranceAdminFee decimal.Decimal    `json:"insuranceAdminFee"`
	PPNSwitch         pricing.Switch     `json:"ppnSwitch" validate:"omitempty,oneof=include exclude not_applicable"`
	SellingPrice      decimal.Decimal    `json:"sellingPrice"`

	Active bool `json:"active"`
}

type QuotationDTO struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	Shipper   string    `json:"shipper"`
	Marketing string    `json:"marketing"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Active    bool      `json:"active"`
	Effective bool      `json:"effective"`
	Details   []LineDTO `json:"details"`
}

// LineDTO carries the stored fields plus the freshly derived valuation.
type LineDTO struct {
	ID            int64  `json:"id"`
	Route         string `json:"route"`
	Port          string `json:"port"`
	DeliveryTo    string `json:"deliveryTo"`
	ContainerSize string `json:"containerSize"`
	ContainerType string `json:"containerType"`
	ServiceType   string `json:"serviceType"`

	OriginVendor      string `json:"originVendor"`
	DestinationVendor string `json:"destinationVendor"`
	ShippingCompany   string `json:"shippingCompany"`

	OriginCost      decimal.Decimal `json:"originCost"`
	DestinationCost decimal.Decimal `json:"destinationCost"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`

	Surcharges        pricing.Surcharges `json:"surcharges"`
	TaxSwitch         pricing.Switch     `json:"taxSwitch"`
	TaxSurcharge      decimal.Decimal    `json:"taxSurcharge"`
	InsuranceSwitch   pricing.Switch     `json:"insuranceSwitch"`
	InsuranceAmount   decimal.Decimal    `json:"insuranceAmount"`
	InsuranceAdminFee decimal.Decimal    `json:"insuranceAdminFee"`
	PPNSwitch         pricing.Switch     `json:"ppnSwitch"`
	SellingPrice      decimal.Decimal    `json:"sellingPrice"`

	Valuation pricing.Valuation `json:"valuation"`

	Active    bool `json:"active"`
	Effective bool `json:"effective"`
}
