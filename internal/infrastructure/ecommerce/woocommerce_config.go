package ecommerce

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/crm/backend/internal/infrastructure/config"
)

// WooCommerceConfig holds configuration for the WooCommerce REST API
type WooCommerceConfig struct {
	// BaseURL is the storefront root, e.g. https://shop.example.com
	BaseURL string
	// APIPath is the REST prefix appended to BaseURL
	APIPath string
	// ConsumerKey and ConsumerSecret are the REST API credentials
	ConsumerKey    string
	ConsumerSecret string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// RateLimit is the sustained request rate (per second); RateBurst the burst size
	RateLimit float64
	RateBurst int
	UserAgent string
}

// DefaultWooCommerceAPIPath is the versioned REST prefix
const DefaultWooCommerceAPIPath = "/wp-json/wc/v3"

// Errors for WooCommerce configuration
var (
	ErrWooCommerceConfigMissingURL    = errors.New("woocommerce: base url is required")
	ErrWooCommerceConfigInvalidURL    = errors.New("woocommerce: base url must be absolute http(s)")
	ErrWooCommerceConfigMissingKey    = errors.New("woocommerce: consumer key is required")
	ErrWooCommerceConfigMissingSecret = errors.New("woocommerce: consumer secret is required")
)

// NewWooCommerceConfig builds a client config from the platform settings
func NewWooCommerceConfig(p config.PlatformConfig) *WooCommerceConfig {
	return &WooCommerceConfig{
		BaseURL:        p.URL,
		APIPath:        p.APIPath,
		ConsumerKey:    p.ConsumerKey,
		ConsumerSecret: p.ConsumerSecret,
		Timeout:        p.Timeout,
		RateLimit:      p.RateLimit,
		RateBurst:      p.RateBurst,
		UserAgent:      p.UserAgent,
	}
}

// Validate checks credentials and fills defaults
func (c *WooCommerceConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrWooCommerceConfigMissingURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrWooCommerceConfigInvalidURL
	}
	if c.ConsumerKey == "" {
		return ErrWooCommerceConfigMissingKey
	}
	if c.ConsumerSecret == "" {
		return ErrWooCommerceConfigMissingSecret
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.APIPath == "" {
		c.APIPath = DefaultWooCommerceAPIPath
	}
	if !strings.HasPrefix(c.APIPath, "/") {
		c.APIPath = "/" + c.APIPath
	}
	c.APIPath = strings.TrimRight(c.APIPath, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 5
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 5
	}
	if c.UserAgent == "" {
		c.UserAgent = "crm-sync/1.0"
	}
	return nil
}

// Endpoint joins the base URL, API prefix and a resource path
func (c *WooCommerceConfig) Endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + c.APIPath + path
}
