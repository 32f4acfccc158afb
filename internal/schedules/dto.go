package schedules

import "time"

type SaveScheduleRequest struct {
	ID              int64     `json:"id"`
	ShippingCompany string    `json:"shippingCompany" validate:"required,max=20"`
	Vessel          string    `json:"vessel" validate:"required,max=60"`
	Voyage          string    `json:"voyage" validate:"required,max=30"`
	Port            string    `json:"port" validate:"required,max=20"`
	ETD             time.Time `json:"etd" validate:"required"`
	ETA             time.Time `json:"eta" validate:"required"`
	Active          bool      `json:"active"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type ScheduleDTO struct {
	ID              int64     `json:"id"`
	Number          string    `json:"number"`
	ShippingCompany string    `json:"shippingCompany"`
	Vessel          string    `json:"vessel"`
	Voyage          string    `json:"voyage"`
	Port            string    `json:"port"`
	ETD             time.Time `json:"etd"`
	ETA             time.Time `json:"eta"`
	Active          bool      `json:"active"`
	Effective       bool      `json:"effective"`
}
