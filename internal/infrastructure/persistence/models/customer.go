package models

import (
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	BaseModel
	Name       string `gorm:"type:varchar(200);not null"`
	FirstName  string `gorm:"type:varchar(100)"`
	LastName   string `gorm:"type:varchar(100)"`
	IDNumber   string `gorm:"type:varchar(50);index"`
	Email      string `gorm:"type:varchar(200);index"`
	Phone      string `gorm:"type:varchar(50);index"`
	Street     string `gorm:"type:varchar(255)"`
	Street2    string `gorm:"type:varchar(255)"`
	City       string `gorm:"type:varchar(100)"`
	Province   string `gorm:"type:varchar(100)"`
	PostalCode string `gorm:"type:varchar(20)"`
	Country    string `gorm:"type:varchar(100)"`
	Brand      string `gorm:"type:varchar(50)"`
	Source     string `gorm:"type:varchar(20);not null;default:'manual'"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		IDNumber:   m.IDNumber,
		Email:      m.Email,
		Phone:      m.Phone,
		Address: valueobject.Address{
			Street:     m.Street,
			Street2:    m.Street2,
			City:       m.City,
			Province:   m.Province,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		Brand:  m.Brand,
		Source: partner.CustomerSource(m.Source),
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.IDNumber = c.IDNumber
	m.Email = c.Email
	m.Phone = c.Phone
	m.Street = c.Address.Street
	m.Street2 = c.Address.Street2
	m.City = c.Address.City
	m.Province = c.Address.Province
	m.PostalCode = c.Address.PostalCode
	m.Country = c.Address.Country
	m.Brand = c.Brand
	m.Source = string(c.Source)
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
