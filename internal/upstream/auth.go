package upstream

import (
	"net/http"
)

// AuthStrategy attaches the API token to an outgoing request.
// Upstream accepts several undocumented conventions, so the client tries
// strategies in order and moves to the next one only on HTTP 401.
type AuthStrategy interface {
	Name() string
	Apply(req *http.Request, token string)
}

// BearerAuth sends "Authorization: Bearer <token>".
type BearerAuth struct{}

func (BearerAuth) Name() string { return "bearer" }

func (BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth sends the token in the api-token and api_token headers.
type HeaderAuth struct{}

func (HeaderAuth) Name() string { return "header" }

func (HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set("api-token", token)
	// Set via the map so the underscore spelling is kept verbatim.
	req.Header["api_token"] = []string{token}
}

// QueryAuth appends api_token to the query string.
type QueryAuth struct{}

func (QueryAuth) Name() string { return "query" }

func (QueryAuth) Apply(req *http.Request, token string) {
	q := req.URL.Query()
	q.Set("api_token", token)
	req.URL.RawQuery = q.Encode()
}

// DefaultAuthStrategies returns the fixed fallback order: bearer, header, query.
func DefaultAuthStrategies() []AuthStrategy {
	return []AuthStrategy{BearerAuth{}, HeaderAuth{}, QueryAuth{}}
}
