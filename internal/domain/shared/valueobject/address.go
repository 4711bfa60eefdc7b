package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a postal/contact snapshot. Orders carry copies of the buyer's
// billing and shipping addresses as they were at purchase time, so later
// customer edits never rewrite an order's history.
type Address struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Company    string `json:"company,omitempty"`
	Street     string `json:"address_1,omitempty"`
	Street2    string `json:"address_2,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"state,omitempty"`
	PostalCode string `json:"postcode,omitempty"`
	Country    string `json:"country,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// IsEmpty reports whether no location field is set
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.Street2 == "" && a.City == "" && a.Province == "" &&
		a.PostalCode == "" && a.Country == ""
}

// FullName joins first and last name
func (a Address) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// Line returns street lines joined for single-column storage
func (a Address) Line() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{a.Street, a.Street2} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// String returns a single-line human readable address
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line(), a.City, a.Province, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Value implements driver.Valuer for database storage
// Stores as JSON string
func (a Address) Value() (driver.Value, error) {
	if a == (Address{}) {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}

	return json.Unmarshal(data, a)
}
