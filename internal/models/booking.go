package models

import (
	"time"

	"github.com/google/uuid"
)

// Service identifiers as submitted by the booking form.
const (
	ServiceMaintenance = "mantenimiento"
	ServiceTires       = "neumaticos"
	ServicePickup      = "recogida"
)

// Tire tiers, always offered in this order.
const (
	TierPremium = "Premium"
	TierOptimal = "Optimal"
	TierEconomy = "Economy"
)

// TireSize is a parsed tire designation such as 205/55 R16.
type TireSize struct {
	Width  int `json:"width"`  // mm
	Aspect int `json:"aspect"` // percent
	Rim    int `json:"rim"`    // inches
}

type TireOption struct {
	Tier  string `json:"tier"`
	Price int    `json:"price"`
	ETA   string `json:"eta"`
	Notes string `json:"notes"`
}

// BookingForm is the flat field set of the booking form.
type BookingForm struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	City           string `json:"city"`
	Service        string `json:"service"`
	Model          string `json:"model"`
	Plate          string `json:"plate"`
	TireSize       string `json:"tire_size"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Address        string `json:"address"`
	ReplacementCar bool   `json:"replacement_car"`
	Accept         bool   `json:"accept"`
}

// BookingRequest is an accepted submission handed to the relay.
type BookingRequest struct {
	ID          uuid.UUID    `json:"id"`
	Form        BookingForm  `json:"form"`
	TireOptions []TireOption `json:"tire_options,omitempty"`
	RetryCount  int          `json:"retry_count"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

type TireOptionsResponse struct {
	Size    *TireSize    `json:"size"`
	Label   string       `json:"label,omitempty"`
	Options []TireOption `json:"options"`
}

type WindowRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type WindowResponse struct {
	Valid bool `json:"valid"`
}
