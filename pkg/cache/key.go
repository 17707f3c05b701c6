package cache

import (
	"net/http"
	"net/url"
	"strings"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "artic:http"

// Key identifies a cached response.
type Key struct {
	// Endpoint is the request path, e.g. "/api/v1/artworks".
	Endpoint string

	// Query holds the query parameters, e.g. page=3.
	Query url.Values
}

// KeyForRequest builds the key for an outgoing request.
func KeyForRequest(req *http.Request) Key {
	return Key{
		Endpoint: req.URL.Path,
		Query:    req.URL.Query(),
	}
}

// String generates a deterministic key. Query parameters are sorted by name.
//
// Example:
//
//	artic:http:api/v1/artworks?page=3
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteString(":")
	b.WriteString(strings.Trim(k.Endpoint, "/"))

	if encoded := k.Query.Encode(); encoded != "" {
		b.WriteString("?")
		b.WriteString(encoded)
	}

	return b.String()
}
