package ecommerce

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signer authenticates one outgoing request
type Signer interface {
	// Sign returns headers to add to a request for method and rawURL.
	// query holds the request's query parameters, which take part in the signature.
	Sign(method, rawURL string, query url.Values) (http.Header, error)
}

// OAuth1Signer signs requests with OAuth 1.0a HMAC-SHA1 using consumer
// credentials only (no token). Every call gets a fresh nonce and timestamp.
type OAuth1Signer struct {
	ConsumerKey    string
	ConsumerSecret string

	// Now and Nonce default to the wall clock and a random uuid
	Now   func() time.Time
	Nonce func() string
}

// NewOAuth1Signer creates a signer for the given consumer credentials
func NewOAuth1Signer(consumerKey, consumerSecret string) *OAuth1Signer {
	return &OAuth1Signer{ConsumerKey: consumerKey, ConsumerSecret: consumerSecret}
}

// Sign implements Signer
func (s *OAuth1Signer) Sign(method, rawURL string, query url.Values) (http.Header, error) {
	baseURL, err := normalizeSigningURL(rawURL)
	if err != nil {
		return nil, err
	}

	oauth := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          "1.0",
	}

	params := make(url.Values, len(query)+len(oauth))
	for k, vs := range query {
		params[k] = append([]string(nil), vs...)
	}
	for k, v := range oauth {
		params.Set(k, v)
	}

	base := signatureBaseString(method, baseURL, params)
	mac := hmac.New(sha1.New, []byte(percentEncode(s.ConsumerSecret)+"&"))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + percentEncode(oauth[k]) + `"`
	}

	h := http.Header{}
	h.Set("Authorization", "OAuth "+strings.Join(parts, ", "))
	return h, nil
}

func (s *OAuth1Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OAuth1Signer) nonce() string {
	if s.Nonce != nil {
		return s.Nonce()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// signatureBaseString builds METHOD&enc(url)&enc(sorted params)
func signatureBaseString(method, baseURL string, params url.Values) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	encoded := make([]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = p.k + "=" + p.v
	}

	return strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(encoded, "&"))
}

// normalizeSigningURL drops query and fragment and lowercases scheme and host
func normalizeSigningURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// percentEncode applies RFC 3986 encoding: only unreserved characters pass through
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte("0123456789ABCDEF"[c>>4])
		b.WriteByte("0123456789ABCDEF"[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

var _ Signer = (*OAuth1Signer)(nil)
