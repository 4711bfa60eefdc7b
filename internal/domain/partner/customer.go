package partner

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// CustomerSource tags the channel a customer record came from
type CustomerSource string

const (
	CustomerSourceManual    CustomerSource = "manual"
	CustomerSourceEcommerce CustomerSource = "ecommerce"
	CustomerSourceWeb       CustomerSource = "web"
)

// Customer is a CRM contact. The sync engine only inserts customers or
// refreshes their postal fields; it never deletes them.
type Customer struct {
	shared.BaseEntity
	Name      string
	FirstName string
	LastName  string
	IDNumber  string
	Email     string
	Phone     string
	Address   valueobject.Address
	Brand     string
	Source    CustomerSource
}

// NewCustomer creates a customer with a display name derived from first/last
// name, falling back to the email or phone when no name was given.
func NewCustomer(firstName, lastName string, ids Identifiers, source CustomerSource) (*Customer, error) {
	ids = ids.Normalize()
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = ids.Email
	}
	if name == "" {
		name = ids.Phone
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer needs a name, email or phone")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}

	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		FirstName:  firstName,
		LastName:   lastName,
		IDNumber:   ids.IDNumber,
		Email:      ids.Email,
		Phone:      ids.Phone,
		Source:     source,
	}, nil
}

// RefreshAddress copies the location fields of addr onto the customer.
// Contact fields on the snapshot are ignored. Returns false when addr carries
// no location or nothing changed.
func (c *Customer) RefreshAddress(addr valueobject.Address) bool {
	if addr.IsEmpty() {
		return false
	}
	next := valueobject.Address{
		Street:     addr.Street,
		Street2:    addr.Street2,
		City:       addr.City,
		Province:   addr.Province,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
	if next == c.Address {
		return false
	}
	c.Address = next
	c.UpdatedAt = time.Now()
	return true
}

// FillMissingContact sets email/phone/ID number only where the customer has none
func (c *Customer) FillMissingContact(ids Identifiers) bool {
	ids = ids.Normalize()
	changed := false
	if c.Email == "" && ids.Email != "" {
		c.Email = ids.Email
		changed = true
	}
	if c.Phone == "" && ids.Phone != "" {
		c.Phone = ids.Phone
		changed = true
	}
	if c.IDNumber == "" && ids.IDNumber != "" {
		c.IDNumber = ids.IDNumber
		changed = true
	}
	if changed {
		c.UpdatedAt = time.Now()
	}
	return changed
}
