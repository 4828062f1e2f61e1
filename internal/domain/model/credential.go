// Package model holds the domain types shared by the API client, its
// services and the adapters.
package model

import "time"

// DefaultTokenType is used when the credential store holds a token without
// an explicit type.
const DefaultTokenType = "Bearer"

// Credential is the bearer token used to authenticate API calls. A Credential
// is either fully present (non-empty Token) or absent; there is no partially
// valid state.
type Credential struct {
	Token      string
	TokenType  string
	AcquiredAt time.Time // Advisory only; zero when the store has no timestamp.
}

// IsZero reports whether the credential is absent.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// AuthorizationHeader renders the value of the Authorization header,
// e.g. "Bearer abc123".
func (c Credential) AuthorizationHeader() string {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return tokenType + " " + c.Token
}

// StoredValue is a single key/value pair held by a credential store.
type StoredValue struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SessionState is the authentication state of a logical session.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAuthenticated   SessionState = "authenticated"
)

// SessionInfo describes the stored session without exposing the token.
type SessionInfo struct {
	State      SessionState `json:"state"`
	TokenKey   string       `json:"token_key,omitempty"`
	TokenType  string       `json:"token_type,omitempty"`
	AcquiredAt *time.Time   `json:"acquired_at,omitempty"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
}
