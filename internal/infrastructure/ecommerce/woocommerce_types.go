package ecommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// flexString accepts a JSON string, number or null. The API is not
// consistent about quoting numeric fields.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// WooCommerceCategory is a product category
type WooCommerceCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Parent      int64  `json:"parent"`
	Description string `json:"description"`
}

// WooCommerceImage is a product image
type WooCommerceImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// WooCommerceAttribute is a product attribute with its options
type WooCommerceAttribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// WooCommerceCategoryRef is a category reference embedded in a product
type WooCommerceCategoryRef struct {
	ID int64 `json:"id"`
}

// WooCommerceProduct is a catalog product
type WooCommerceProduct struct {
	ID            int64                    `json:"id"`
	Name          string                   `json:"name"`
	Type          string                   `json:"type"`
	Status        string                   `json:"status"`
	SKU           string                   `json:"sku"`
	Description   string                   `json:"description"`
	Price         flexString               `json:"price"`
	RegularPrice  flexString               `json:"regular_price"`
	StockQuantity *int                     `json:"stock_quantity"`
	Permalink     string                   `json:"permalink"`
	Categories    []WooCommerceCategoryRef `json:"categories"`
	Images        []WooCommerceImage       `json:"images"`
	Attributes    []WooCommerceAttribute   `json:"attributes"`
}

// WooCommerceAddress is a billing or shipping address
type WooCommerceAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// WooCommerceMeta is one meta_data entry
type WooCommerceMeta struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// WooCommerceLineItem is an order line
type WooCommerceLineItem struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	ProductID int64             `json:"product_id"`
	SKU       string            `json:"sku"`
	Quantity  int               `json:"quantity"`
	Price     flexString        `json:"price"`
	Subtotal  flexString        `json:"subtotal"`
	Total     flexString        `json:"total"`
	MetaData  []WooCommerceMeta `json:"meta_data"`
}

// WooCommerceOrder is a storefront order
type WooCommerceOrder struct {
	ID              int64                 `json:"id"`
	Status          string                `json:"status"`
	Currency        string                `json:"currency"`
	Total           flexString            `json:"total"`
	PaymentMethod   string                `json:"payment_method_title"`
	CustomerNote    string                `json:"customer_note"`
	DateCreated     string                `json:"date_created"`
	DateCreatedGMT  string                `json:"date_created_gmt"`
	DateModified    string                `json:"date_modified"`
	DateModifiedGMT string                `json:"date_modified_gmt"`
	DatePaid        *string               `json:"date_paid"`
	DatePaidGMT     *string               `json:"date_paid_gmt"`
	Billing         WooCommerceAddress    `json:"billing"`
	Shipping        WooCommerceAddress    `json:"shipping"`
	LineItems       []WooCommerceLineItem `json:"line_items"`
	MetaData        []WooCommerceMeta     `json:"meta_data"`
}

// WooCommerceStockUpdate is the body of a stock write
type WooCommerceStockUpdate struct {
	StockQuantity int  `json:"stock_quantity"`
	ManageStock   bool `json:"manage_stock"`
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func (c WooCommerceCategory) toRemote() integration.RemoteCategory {
	return integration.RemoteCategory{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.Parent,
	}
}

func (p WooCommerceProduct) toRemote() integration.RemoteProduct {
	price := string(p.Price)
	if price == "" {
		price = string(p.RegularPrice)
	}
	rp := integration.RemoteProduct{
		ID:            p.ID,
		Name:          p.Name,
		Type:          p.Type,
		Status:        p.Status,
		SKU:           strings.TrimSpace(p.SKU),
		Description:   p.Description,
		Price:         price,
		StockQuantity: p.StockQuantity,
		Permalink:     p.Permalink,
		CategoryIDs:   make([]int64, 0, len(p.Categories)),
		Images:        make([]catalog.Image, 0, len(p.Images)),
		Attributes:    make(catalog.Attributes, len(p.Attributes)),
	}
	for _, c := range p.Categories {
		rp.CategoryIDs = append(rp.CategoryIDs, c.ID)
	}
	for _, img := range p.Images {
		if img.Src == "" {
			continue
		}
		rp.Images = append(rp.Images, catalog.Image{Src: img.Src, Alt: img.Alt})
	}
	for _, a := range p.Attributes {
		if a.Name == "" {
			continue
		}
		rp.Attributes[a.Name] = append([]string(nil), a.Options...)
	}
	return rp
}

func (a WooCommerceAddress) toValueObject() valueobject.Address {
	return valueobject.Address{
		FirstName:  strings.TrimSpace(a.FirstName),
		LastName:   strings.TrimSpace(a.LastName),
		Company:    strings.TrimSpace(a.Company),
		Street:     strings.TrimSpace(a.Address1),
		Street2:    strings.TrimSpace(a.Address2),
		City:       strings.TrimSpace(a.City),
		Province:   strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.Postcode),
		Country:    strings.TrimSpace(a.Country),
		Email:      strings.TrimSpace(a.Email),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

func (o WooCommerceOrder) toRemote() integration.RemoteOrder {
	ro := integration.RemoteOrder{
		ID:            o.ID,
		Status:        o.Status,
		Currency:      o.Currency,
		Total:         string(o.Total),
		PaymentMethod: o.PaymentMethod,
		CustomerNote:  o.CustomerNote,
		DateCreated:   parseWooTime(o.DateCreatedGMT, o.DateCreated),
		DateModified:  parseWooTime(o.DateModifiedGMT, o.DateModified),
		DatePaid:      parseWooTime(deref(o.DatePaidGMT), deref(o.DatePaid)),
		Billing:       o.Billing.toValueObject(),
		Shipping:      o.Shipping.toValueObject(),
		LineItems:     make([]integration.RemoteLineItem, 0, len(o.LineItems)),
		Meta:          metaMap(o.MetaData),
	}
	for _, li := range o.LineItems {
		ro.LineItems = append(ro.LineItems, integration.RemoteLineItem{
			ID:        li.ID,
			ProductID: li.ProductID,
			Name:      li.Name,
			SKU:       strings.TrimSpace(li.SKU),
			Quantity:  li.Quantity,
			Price:     string(li.Price),
			Total:     string(li.Total),
			Meta:      metaMap(li.MetaData),
		})
	}
	return ro
}

// wooTimeLayouts are tried in order; the *_gmt fields carry no zone
var wooTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// parseWooTime parses the GMT variant when present, else the local one, as UTC
func parseWooTime(values ...string) *time.Time {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, layout := range wooTimeLayouts {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// metaMap flattens meta entries to strings. Internal keys (leading
// underscore) are kept since some plugins store customer data there.
func metaMap(entries []WooCommerceMeta) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		out[e.Key] = metaValue(e.Value)
	}
	return out
}

func metaValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(raw)
}
