package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ItsMalma/fiems-sub000/internal/status"
	"github.com/ItsMalma/fiems-sub000/internal/uniqueness"
)

// ListKind separates vendor (trucking) price lists from shipping (sea leg)
// price lists. Both share the same component shape.
type ListKind string

const (
	KindVendor   ListKind = "vendor"
	KindShipping ListKind = "shipping"
)

// Container sizes that appear in combo conversion.
const (
	Size20Feet = "20 Feet"
	Size40HC   = "40 HC"
)

// PriceList is a master record: a counterparty, a validity window, and the
// priced components it owns.
type PriceList struct {
	ID               int64
	Kind             ListKind
	Number           string
	CounterpartyCode string
	StartDate        time.Time
	EndDate          time.Time
	Active           bool
	Details          []Component
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Component is one priced lane: the charges a counterparty quotes for a
// route/port/container combination. Its grand total feeds quotation
// valuation.
type Component struct {
	ID            int64
	PriceListID   int64
	RouteCode     string
	PortCode      string
	ContainerSize string
	ContainerType string
	ServiceType   string
	BaseRate      decimal.Decimal
	THC           decimal.Decimal
	BLFee         decimal.Decimal
	SealFee       decimal.Decimal
	LoLo          decimal.Decimal
	Storage       decimal.Decimal
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity implements reconcile.Row.
func (c Component) Identity() int64 { return c.ID }

// GrandTotal derives the component's full charge. Recomputed on every read,
// never stored.
func (c Component) GrandTotal() decimal.Decimal {
	return c.BaseRate.Add(c.THC).Add(c.BLFee).Add(c.SealFee).Add(c.LoLo).Add(c.Storage)
}

// NaturalKey is the tuple the uniqueness guard checks within and across
// price lists of the same kind.
func (c Component) NaturalKey(counterparty string) uniqueness.Key {
	return uniqueness.Key{
		{Path: "route", Value: c.RouteCode},
		{Path: "port", Value: c.PortCode},
		{Path: "containerSize", Value: c.ContainerSize},
		{Path: "containerType", Value: c.ContainerType},
		{Path: "serviceType", Value: c.ServiceType},
		{Path: "counterparty", Value: counterparty},
	}
}

// ComponentRow is a component joined with the status inputs of its owning
// list and counterparty, enough to resolve effective status without further
// round trips.
type ComponentRow struct {
	Component
	ListID             int64
	ListKind           ListKind
	ListNumber         string
	CounterpartyCode   string
	ListStart          time.Time
	ListEnd            time.Time
	ListActive         bool
	CounterpartyActive *bool
	GroupActive        *bool
}

// StatusNode folds the component's own flag with its list's window/flag and
// the counterparty chain. Unresolvable references are omitted and default
// to live.
func (r ComponentRow) StatusNode() status.Node {
	list := status.Windowed(r.ListActive, r.ListStart, r.ListEnd)
	if r.CounterpartyActive != nil {
		counterparty := status.Leaf(*r.CounterpartyActive)
		if r.GroupActive != nil {
			counterparty = counterparty.WithRefs(status.Leaf(*r.GroupActive))
		}
		list = list.WithRefs(counterparty)
	}
	return status.Leaf(r.Active).WithRefs(list)
}

// Lookup selects a component for a quotation line: an exact match on the
// whole tuple among effectively active components. First match wins.
type Lookup struct {
	Kind          ListKind
	Counterparty  string
	RouteCode     string
	PortCode      string
	ContainerSize string
	ContainerType string
	ServiceType   string
}

func (l Lookup) matches(r ComponentRow) bool {
	return r.ListKind == l.Kind &&
		r.CounterpartyCode == l.Counterparty &&
		r.RouteCode == l.RouteCode &&
		r.PortCode == l.PortCode &&
		r.ContainerSize == l.ContainerSize &&
		r.ContainerType == l.ContainerType &&
		r.ServiceType == l.ServiceType
}
