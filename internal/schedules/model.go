package schedules

import (
	"time"

	"github.com/ItsMalma/fiems-sub000/internal/status"
	"github.com/ItsMalma/fiems-sub000/internal/uniqueness"
)

// VesselSchedule is one sailing: a shipping company's vessel and voyage with
// its port call estimates. Two schedules sharing (shipping company, vessel,
// voyage) occupy the same slot and are mutually exclusive when active.
type VesselSchedule struct {
	ID           int64
	Number       string
	ShippingCode string
	Vessel       string
	Voyage       string
	PortCode     string
	ETD          time.Time
	ETA          time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Joined status input of the shipping company. Nil defaults to live.
	ShippingActive *bool
}

// SlotKey identifies the schedule's exclusive slot.
func (v VesselSchedule) SlotKey() uniqueness.Key {
	return uniqueness.Key{
		{Path: "shippingCompany", Value: v.ShippingCode},
		{Path: "vessel", Value: v.Vessel},
		{Path: "voyage", Value: v.Voyage},
	}
}

// StatusNode folds the schedule's flag with its shipping company's.
func (v VesselSchedule) StatusNode() status.Node {
	n := status.Leaf(v.Active)
	if v.ShippingActive != nil {
		n = n.WithRefs(status.Leaf(*v.ShippingActive))
	}
	return n
}
