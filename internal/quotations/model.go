package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ItsMalma/fiems-sub000/internal/pricing"
	"github.com/ItsMalma/fiems-sub000/internal/status"
	"github.com/ItsMalma/fiems-sub000/internal/uniqueness"
)

// Quotation is the master record: a shipper, the marketing owner, a validity
// window and the priced lanes offered.
type Quotation struct {
	ID            int64
	Number        string
	ShipperCode   string
	MarketingCode string
	StartDate     time.Time
	EndDate       time.Time
	Active        bool
	Lines         []Line
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined status inputs of the shipper chain. Nil when the reference
	// could not be resolved; a missing reference defaults to live.
	ShipperActive *bool
	GroupActive   *bool
}

// StatusNode folds the quotation's window/flag with the shipper chain.
func (q Quotation) StatusNode() status.Node {
	n := status.Windowed(q.Active, q.StartDate, q.EndDate)
	if q.ShipperActive != nil {
		shipper := status.Leaf(*q.ShipperActive)
		if q.GroupActive != nil {
			shipper = shipper.WithRefs(status.Leaf(*q.GroupActive))
		}
		n = n.WithRefs(shipper)
	}
	return n
}

// Line is one offered lane with its resolved cost components and manual
// charge fields. The selling price is the only stored monetary figure; every
// other money column on the read side is derived.
type Line struct {
	ID            int64
	QuotationID   int64
	RouteCode     string
	PortCode      string
	DeliveryTo    string
	ContainerSize string
	ContainerType string
	ServiceType   string

	OriginVendorCode    string
	DestinationVendor   string
	ShippingCode        string
	OriginComponentID   *int64
	DestComponentID     *int64
	ShippingComponentID *int64

	Surcharges        pricing.Surcharges
	TaxSwitch         pricing.Switch
	TaxSurcharge      decimal.Decimal
	InsuranceSwitch   pricing.Switch
	InsuranceAmount   decimal.Decimal
	InsuranceAdminFee decimal.Decimal
	PPNSwitch         pricing.Switch
	SellingPrice      decimal.Decimal

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity implements reconcile.Row.
func (l Line) Identity() int64 { return l.ID }

// NaturalKey is the lane tuple kept unique among effectively active lines of
// every quotation, not just the line's own parent.
func (l Line) NaturalKey() uniqueness.Key {
	return uniqueness.Key{
		{Path: "route", Value: l.RouteCode},
		{Path: "port", Value: l.PortCode},
		{Path: "containerSize", Value: l.ContainerSize},
		{Path: "containerType", Value: l.ContainerType},
	}
}

// LineRow is a line joined with the status inputs of its parent quotation
// and shipper chain, for the system-wide lane guard.
type LineRow struct {
	Line
	QuotationStart  time.Time
	QuotationEnd    time.Time
	QuotationActive bool
	ShipperActive   *bool
	GroupActive     *bool
}

func (r LineRow) StatusNode() status.Node {
	parent := status.Windowed(r.QuotationActive, r.QuotationStart, r.QuotationEnd)
	if r.ShipperActive != nil {
		shipper := status.Leaf(*r.ShipperActive)
		if r.GroupActive != nil {
			shipper = shipper.WithRefs(status.Leaf(*r.GroupActive))
		}
		parent = parent.WithRefs(shipper)
	}
	return status.Leaf(r.Active).WithRefs(parent)
}
