package masterdata

import (
	"time"

	"github.com/ItsMalma/fiems-sub000/internal/status"
)

// ShipperGroup buckets customers for reporting; retiring a group retires
// every customer in it on the next read.
type ShipperGroup struct {
	ID        int64
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g ShipperGroup) StatusNode() status.Node {
	return status.Leaf(g.Active)
}

// CustomerKind distinguishes shippers, vendors (trucking counterparties) and
// shipping companies. All three share the customer table.
type CustomerKind string

const (
	CustomerShipper         CustomerKind = "shipper"
	CustomerVendor          CustomerKind = "vendor"
	CustomerShippingCompany CustomerKind = "shipping"
)

type Customer struct {
	ID        int64
	Code      string
	Kind      CustomerKind
	Name      string
	GroupCode string
	Group     *ShipperGroup
	Address   string
	City      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Customer) StatusNode() status.Node {
	n := status.Leaf(c.Active)
	if c.Group != nil {
		n = n.WithRefs(c.Group.StatusNode())
	}
	return n
}

type Route struct {
	ID          int64
	Code        string
	Origin      string
	Destination string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Route) StatusNode() status.Node {
	return status.Leaf(r.Active)
}

type Port struct {
	ID        int64
	Code      string
	Name      string
	City      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Port) StatusNode() status.Node {
	return status.Leaf(p.Active)
}

type ProductCategory struct {
	ID        int64
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c ProductCategory) StatusNode() status.Node {
	return status.Leaf(c.Active)
}

// Product carries a generated SKU number; its effective status follows its
// category.
type Product struct {
	ID           int64
	SKU          string
	Name         string
	CategoryName string
	Category     *ProductCategory
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Product) StatusNode() status.Node {
	n := status.Leaf(p.Active)
	if p.Category != nil {
		n = n.WithRefs(p.Category.StatusNode())
	}
	return n
}

// Marketing is the sales staff member that owns a quotation.
type Marketing struct {
	ID        int64
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Marketing) StatusNode() status.Node {
	return status.Leaf(m.Active)
}
