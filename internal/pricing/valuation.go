package pricing

import "github.com/shopspring/decimal"

// Switch is the tri-state applied to the tax and insurance surcharges and to
// the PPN treatment of the selling price.
type Switch string

const (
	SwitchInclude       Switch = "include"
	SwitchExclude       Switch = "exclude"
	SwitchNotApplicable Switch = "not_applicable"
)

// Applicable reports whether the switched amount participates in the cost
// basis at all.
func (s Switch) Applicable() bool { return s != SwitchNotApplicable && s != "" }

var (
	// insuranceRate converts the insured amount into its premium.
	insuranceRate = decimal.NewFromFloat(0.001)
	// ppnDivisor backs the 1.1% VAT out of a tax-inclusive selling price.
	ppnDivisor = decimal.NewFromFloat(1.011)
	// ppnRate re-derives the VAT amount from the tax-exclusive price.
	ppnRate = decimal.NewFromFloat(0.011)
)

// Surcharges are the nine manually entered charge fields on a quotation line.
type Surcharges struct {
	AdminBL       decimal.Decimal `json:"adminBL"`
	Cleaning      decimal.Decimal `json:"cleaning"`
	Transshipment decimal.Decimal `json:"transshipment"`
	StampDuty     decimal.Decimal `json:"stampDuty"`
	Labor         decimal.Decimal `json:"labor"`
	Stuffing      decimal.Decimal `json:"stuffing"`
	Transit       decimal.Decimal `json:"transit"`
	Forwarding    decimal.Decimal `json:"forwarding"`
	Handling      decimal.Decimal `json:"handling"`
}

// Total sums the nine fields.
func (s Surcharges) Total() decimal.Decimal {
	return s.AdminBL.Add(s.Cleaning).Add(s.Transshipment).Add(s.StampDuty).
		Add(s.Labor).Add(s.Stuffing).Add(s.Transit).Add(s.Forwarding).Add(s.Handling)
}

// ValuationInput carries everything a quotation line's derived figures need:
// the three looked-up component totals plus the line's manual fields. A
// component that could not be resolved contributes zero.
type ValuationInput struct {
	OriginTrucking      decimal.Decimal
	DestinationTrucking decimal.Decimal
	ShippingLeg         decimal.Decimal
	Surcharges          Surcharges
	TaxSwitch           Switch
	TaxSurcharge        decimal.Decimal
	InsuranceSwitch     Switch
	InsuranceAmount     decimal.Decimal
	InsuranceAdminFee   decimal.Decimal
	PPNSwitch           Switch
	SellingPrice        decimal.Decimal
}

// Valuation is the derived read model. Nothing here is persisted; the one
// stored monetary input is the selling price.
type Valuation struct {
	SurchargeTotal     decimal.Decimal `json:"surchargeTotal"`
	InsuranceSurcharge decimal.Decimal `json:"insuranceSurcharge"`
	CostBasis          decimal.Decimal `json:"hpp"`
	SellingPriceExTax  decimal.Decimal `json:"sellingPriceExTax"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	Profit             decimal.Decimal `json:"profit"`
}

// Valuate recomputes a line's cost basis, selling-price decomposition and
// profit from its current inputs.
func Valuate(in ValuationInput) Valuation {
	var v Valuation

	v.SurchargeTotal = in.Surcharges.Total()

	if in.InsuranceSwitch.Applicable() {
		v.InsuranceSurcharge = in.InsuranceAmount.Mul(insuranceRate).Add(in.InsuranceAdminFee)
	}

	v.CostBasis = in.OriginTrucking.
		Add(in.DestinationTrucking).
		Add(in.ShippingLeg).
		Add(v.SurchargeTotal).
		Add(v.InsuranceSurcharge)
	if in.TaxSwitch.Applicable() {
		v.CostBasis = v.CostBasis.Add(in.TaxSurcharge)
	}

	v.SellingPriceExTax = in.SellingPrice
	if in.PPNSwitch == SwitchInclude {
		v.SellingPriceExTax = in.SellingPrice.Div(ppnDivisor)
	}
	v.TaxAmount = v.SellingPriceExTax.Mul(ppnRate)
	v.Profit = v.SellingPriceExTax.Sub(v.CostBasis)

	return v
}
