package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Shipping Order DTOs
// ---------------------------------------------------------------------------

// ShippingContactRequest is the buyer of a shipping order
type ShippingContactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	IDNumber  string `json:"id_number" validate:"max=50"`
	Phone     string `json:"phone" validate:"required_without=Email,max=50"`
	Email     string `json:"email" validate:"omitempty,email,max=200"`
}

// Identifiers returns the contact's match keys
func (c ShippingContactRequest) Identifiers() partner.Identifiers {
	return partner.Identifiers{IDNumber: c.IDNumber, Phone: c.Phone, Email: c.Email}
}

// ShippingAddressRequest is the delivery address of a shipping order
type ShippingAddressRequest struct {
	Street     string `json:"street" validate:"required,max=200"`
	Street2    string `json:"street2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"omitempty,len=2"`
}

// ShippingOrderItemRequest is one line of a shipping order. When ProductID is
// set, missing name, SKU and price are taken from the product.
type ShippingOrderItemRequest struct {
	ProductID *uuid.UUID       `json:"product_id"`
	Name      string           `json:"name" validate:"required_without=ProductID,max=200"`
	SKU       string           `json:"sku" validate:"max=100"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// ShippingOrderRequest creates a local web order for a contact
type ShippingOrderRequest struct {
	Contact       ShippingContactRequest     `json:"contact" validate:"required"`
	Address       ShippingAddressRequest     `json:"address" validate:"required"`
	Items         []ShippingOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Currency      string                     `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string                     `json:"payment_method" validate:"max=50"`
	Notes         string                     `json:"notes" validate:"max=2000"`
}

// ToAddress returns the delivery address with the contact fields filled in
func (r ShippingOrderRequest) ToAddress() valueobject.Address {
	return valueobject.Address{
		FirstName:  r.Contact.FirstName,
		LastName:   r.Contact.LastName,
		Street:     r.Address.Street,
		Street2:    r.Address.Street2,
		City:       r.Address.City,
		Province:   r.Address.Province,
		PostalCode: r.Address.PostalCode,
		Country:    r.Address.Country,
		Email:      r.Contact.Email,
		Phone:      r.Contact.Phone,
	}
}

// ShippingOrderResponse is the result of creating a shipping order
type ShippingOrderResponse struct {
	CustomerID  uuid.UUID        `json:"customer_id"`
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Total       decimal.Decimal  `json:"total"`
	Matched     bool             `json:"matched"`
	MatchedBy   partner.MatchKey `json:"matched_by,omitempty"`
	Conflict    bool             `json:"conflict"`
}

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// RunResponse represents a sync run in API responses
type RunResponse struct {
	RunID      uuid.UUID                  `json:"run_id"`
	Trigger    integration.Trigger        `json:"trigger"`
	Status     integration.SyncStatus     `json:"status"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
	Phases     []*integration.PhaseResult `json:"phases"`
	Error      string                     `json:"error,omitempty"`
}

// ToRunResponse converts a run summary to its API form
func ToRunResponse(s *integration.RunSummary) RunResponse {
	phases := s.Phases
	if phases == nil {
		phases = make([]*integration.PhaseResult, 0)
	}
	return RunResponse{
		RunID:      s.RunID,
		Trigger:    s.Trigger,
		Status:     s.Status,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Phases:     phases,
		Error:      s.Error,
	}
}

// ConflictResponse represents an identity conflict awaiting review
type ConflictResponse struct {
	ID                 uuid.UUID           `json:"id"`
	Source             string              `json:"source"`
	Identifiers        partner.Identifiers `json:"identifiers"`
	IDNumberCustomerID *uuid.UUID          `json:"id_number_customer_id,omitempty"`
	PhoneCustomerID    *uuid.UUID          `json:"phone_customer_id,omitempty"`
	EmailCustomerID    *uuid.UUID          `json:"email_customer_id,omitempty"`
	ChosenCustomerID   uuid.UUID           `json:"chosen_customer_id"`
	CreatedAt          time.Time           `json:"created_at"`
}

// ToConflictResponse converts an identity conflict to its API form
func ToConflictResponse(c partner.IdentityConflict) ConflictResponse {
	return ConflictResponse{
		ID:                 c.ID,
		Source:             c.Source,
		Identifiers:        c.Identifiers,
		IDNumberCustomerID: c.IDNumberCustomerID,
		PhoneCustomerID:    c.PhoneCustomerID,
		EmailCustomerID:    c.EmailCustomerID,
		ChosenCustomerID:   c.ChosenCustomerID,
		CreatedAt:          c.CreatedAt,
	}
}
