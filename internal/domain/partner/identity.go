package partner

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MatchKey names the identifier that resolved a customer
type MatchKey string

const (
	MatchKeyNone     MatchKey = ""
	MatchKeyIDNumber MatchKey = "id_number"
	MatchKeyPhone    MatchKey = "phone"
	MatchKeyEmail    MatchKey = "email"
)

// IsValid reports whether k is one of the known match keys
func (k MatchKey) IsValid() bool {
	switch k {
	case MatchKeyIDNumber, MatchKeyPhone, MatchKeyEmail:
		return true
	}
	return false
}

// MatchPriority is the order identifiers are trusted in
var MatchPriority = []MatchKey{MatchKeyIDNumber, MatchKeyPhone, MatchKeyEmail}

// Identifiers are the candidate keys used to resolve a contact
type Identifiers struct {
	IDNumber string `json:"id_number,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Normalize trims all fields and lowercases the email
func (i Identifiers) Normalize() Identifiers {
	return Identifiers{
		IDNumber: strings.TrimSpace(i.IDNumber),
		Phone:    strings.TrimSpace(i.Phone),
		Email:    strings.ToLower(strings.TrimSpace(i.Email)),
	}
}

// IsEmpty reports whether no identifier is present
func (i Identifiers) IsEmpty() bool {
	n := i.Normalize()
	return n.IDNumber == "" && n.Phone == "" && n.Email == ""
}

// Only keeps the identifiers named in keys and blanks the rest
func (i Identifiers) Only(keys ...MatchKey) Identifiers {
	var out Identifiers
	for _, k := range keys {
		switch k {
		case MatchKeyIDNumber:
			out.IDNumber = i.IDNumber
		case MatchKeyPhone:
			out.Phone = i.Phone
		case MatchKeyEmail:
			out.Email = i.Email
		}
	}
	return out
}

// OrderConflictSource names an imported storefront order as a conflict source
func OrderConflictSource(externalID int64) string {
	return "order:" + strconv.FormatInt(externalID, 10)
}

// WebConflictSource names a locally created web order as a conflict source
func WebConflictSource(orderNumber string) string {
	return "web:" + orderNumber
}

// IdentityConflict records that two or more identifiers of one contact
// resolved to different existing customers. It is queued for manual review;
// nothing is merged automatically. Source names the order that hit it.
type IdentityConflict struct {
	ID                 uuid.UUID
	Source             string
	Identifiers        Identifiers
	IDNumberCustomerID *uuid.UUID
	PhoneCustomerID    *uuid.UUID
	EmailCustomerID    *uuid.UUID
	ChosenCustomerID   uuid.UUID
	Resolved           bool
	CreatedAt          time.Time
}

// NewIdentityConflict builds a conflict from per-key hits. It returns nil
// when every hit points to the same customer.
func NewIdentityConflict(source string, ids Identifiers, hits map[MatchKey]uuid.UUID, chosen uuid.UUID) *IdentityConflict {
	distinct := make(map[uuid.UUID]struct{}, len(hits))
	for _, id := range hits {
		distinct[id] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil
	}

	c := &IdentityConflict{
		ID:               uuid.New(),
		Source:           source,
		Identifiers:      ids.Normalize(),
		ChosenCustomerID: chosen,
		CreatedAt:        time.Now(),
	}
	if id, ok := hits[MatchKeyIDNumber]; ok {
		c.IDNumberCustomerID = &id
	}
	if id, ok := hits[MatchKeyPhone]; ok {
		c.PhoneCustomerID = &id
	}
	if id, ok := hits[MatchKeyEmail]; ok {
		c.EmailCustomerID = &id
	}
	return c
}
