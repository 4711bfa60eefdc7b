package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crm/backend/internal/domain/shared"
)

// Category is a product category, optionally mirrored from the external
// platform. Brand and ExternalID never change once the category exists.
type Category struct {
	shared.BaseEntity
	Name        string
	Slug        string
	Description string
	Brand       Brand
	ExternalID  *int64
	ParentID    *uuid.UUID
}

// NewCategory creates a category. An empty slug is derived from the name and
// the brand is inferred from the name.
func NewCategory(name, slug, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot exceed 200 characters")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_SLUG", "Category slug cannot be empty")
	}

	return &Category{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Slug:        slug,
		Description: description,
		Brand:       InferBrand(name),
	}, nil
}

// NewExternalCategory creates a category mirrored from a remote category
func NewExternalCategory(externalID int64, name, slug, description string) (*Category, error) {
	c, err := NewCategory(name, slug, description)
	if err != nil {
		return nil, err
	}
	c.ExternalID = &externalID
	return c, nil
}

// ApplyRemote refreshes the mutable descriptive fields. Empty remote values
// keep the local ones. Returns whether anything changed.
func (c *Category) ApplyRemote(name, slug, description string) bool {
	changed := false
	if name = strings.TrimSpace(name); name != "" && name != c.Name {
		c.Name = name
		changed = true
	}
	if slug = strings.TrimSpace(slug); slug != "" && slug != c.Slug {
		c.Slug = slug
		changed = true
	}
	if description != c.Description {
		c.Description = description
		changed = true
	}
	c.UpdatedAt = time.Now()
	return changed
}

// SetParent links the category under parent
func (c *Category) SetParent(parentID *uuid.UUID) {
	c.ParentID = parentID
}
