package documents

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaveDocumentRequest struct {
	ID        int64             `json:"id"`
	Date      time.Time         `json:"date" validate:"required"`
	Customer  string            `json:"customer" validate:"required,max=20"`
	Marketing string            `json:"marketing" validate:"omitempty,max=20"`
	Remarks   string            `json:"remarks" validate:"max=500"`
	Active    bool              `json:"active"`
	Details   []SaveDetailInput `json:"details" validate:"required,min=1,dive"`
}

type SaveDetailInput struct {
	ID          int64           `json:"id"`
	Product     string          `json:"product" validate:"omitempty,max=20"`
	Route       string          `json:"route" validate:"omitempty,max=20"`
	Description string          `json:"description" validate:"max=200"`
	Quantity    decimal.Decimal `json:"quantity"`
	Active      bool            `json:"active"`
}

type DocumentDTO struct {
	ID        int64       `json:"id"`
	Family    Family      `json:"family"`
	Number    string      `json:"number"`
	Date      time.Time   `json:"date"`
	Customer  string      `json:"customer"`
	Marketing string      `json:"marketing,omitempty"`
	Remarks   string      `json:"remarks,omitempty"`
	Active    bool        `json:"active"`
	Effective bool        `json:"effective"`
	Details   []DetailDTO `json:"details"`
}

type DetailDTO struct {
	ID          int64           `json:"id"`
	Product     string          `json:"product,omitempty"`
	Route       string          `json:"route,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Active      bool            `json:"active"`
	Effective   bool            `json:"effective"`
}
