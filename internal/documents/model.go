package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/status"
)

// Family distinguishes the document types that share the master-detail
// shape. They differ only in their number format and labels.
type Family string

const (
	FamilyInquiry      Family = "inquiry"
	FamilyDeliveryNote Family = "delivery_note"
	FamilyHandover     Family = "handover"
	FamilyRequest      Family = "request"
)

var sequenceFamilies = map[Family]sequence.Family{
	FamilyInquiry:      sequence.FamilyInquiry,
	FamilyDeliveryNote: sequence.FamilyDeliveryNote,
	FamilyHandover:     sequence.FamilyHandover,
	FamilyRequest:      sequence.FamilyRequest,
}

// Valid reports whether f names a known document family.
func (f Family) Valid() bool {
	_, ok := sequenceFamilies[f]
	return ok
}

// Document is the parent record of any family.
type Document struct {
	ID            int64
	Family        Family
	Number        string
	Date          time.Time
	CustomerCode  string
	MarketingCode string
	Remarks       string
	Active        bool
	Details       []Detail
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined status inputs of the customer chain.
	CustomerActive *bool
	GroupActive    *bool
}

// StatusNode folds the document's flag with its customer chain.
func (d Document) StatusNode() status.Node {
	n := status.Leaf(d.Active)
	if d.CustomerActive != nil {
		customer := status.Leaf(*d.CustomerActive)
		if d.GroupActive != nil {
			customer = customer.WithRefs(status.Leaf(*d.GroupActive))
		}
		n = n.WithRefs(customer)
	}
	return n
}

// Detail is one line of a document. The product and route references are
// optional; a detail keeps its identity across edits and carries its own
// flag independent of the parent's.
type Detail struct {
	ID          int64
	DocumentID  int64
	ProductCode string
	RouteCode   string
	Description string
	Quantity    decimal.Decimal
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity implements reconcile.Row.
func (d Detail) Identity() int64 { return d.ID }
