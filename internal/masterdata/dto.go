package masterdata

// Save inputs. A zero ID creates; a non-zero ID edits the existing record.

type SaveShipperGroupRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name" validate:"required,max=100"`
	Active bool   `json:"active"`
}

type SaveCustomerRequest struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind" validate:"required,oneof=shipper vendor shipping"`
	Name      string `json:"name" validate:"required,max=150"`
	GroupCode string `json:"group" validate:"omitempty,max=20"`
	Address   string `json:"address" validate:"max=255"`
	City      string `json:"city" validate:"max=100"`
	Active    bool   `json:"active"`
}

type SaveRouteRequest struct {
	ID          int64  `json:"id"`
	Origin      string `json:"origin" validate:"required,max=100"`
	Destination string `json:"destination" validate:"required,max=100"`
	Active      bool   `json:"active"`
}

type SavePortRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name" validate:"required,max=100"`
	City   string `json:"city" validate:"max=100"`
	Active bool   `json:"active"`
}

type SaveProductCategoryRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Active bool   `json:"active"`
}

type SaveProductRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name" validate:"required,max=150"`
	Category string `json:"category" validate:"required,max=100"`
	Active   bool   `json:"active"`
}

type SaveMarketingRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name" validate:"required,max=100"`
	Active bool   `json:"active"`
}

// Read DTOs carry the status-resolved effective flag next to the stored one.

type ShipperGroupDTO struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Effective bool   `json:"effective"`
}

type CustomerDTO struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Group     string `json:"group,omitempty"`
	GroupName string `json:"groupName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Active    bool   `json:"active"`
	Effective bool   `json:"effective"`
}

type RouteDTO struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Active      bool   `json:"active"`
	Effective   bool   `json:"effective"`
}

type PortDTO struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	City      string `json:"city,omitempty"`
	Active    bool   `json:"active"`
	Effective bool   `json:"effective"`
}

type ProductDTO struct {
	ID        int64  `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Active    bool   `json:"active"`
	Effective bool   `json:"effective"`
}

type MarketingDTO struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Effective bool   `json:"effective"`
}
