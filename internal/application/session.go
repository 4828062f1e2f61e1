package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// Credential store keys. Older screens wrote the token under "token" or
// "auth_token"; resolution still honors them in this order.
const (
	KeyAccessToken    = "access_token"
	KeyToken          = "token"
	KeyAuthToken      = "auth_token"
	KeyTokenType      = "token_type"
	KeyTokenTimestamp = "token_timestamp"
)

// tokenKeys is the resolution priority for the token value.
var tokenKeys = []string{KeyAccessToken, KeyToken, KeyAuthToken}

// credentialKeys is every key owned by the session.
var credentialKeys = []string{KeyAccessToken, KeyToken, KeyAuthToken, KeyTokenType, KeyTokenTimestamp}

// Session is the explicit handle on the persisted credential. It holds no
// credential itself: every read goes to the store, so concurrent callers
// always see the latest write.
type Session struct {
	store driven.CredentialStore
	now   func() time.Time
}

// NewSession creates a Session over the given store.
func NewSession(store driven.CredentialStore) *Session {
	return &Session{store: store, now: time.Now}
}

// ResolveCredential reads the current credential. It returns an *model.APIError
// of kind KindUnauthenticated when no token is stored.
func (s *Session) ResolveCredential(ctx context.Context) (model.Credential, error) {
	var token string
	for _, key := range tokenKeys {
		v, err := s.store.Get(ctx, key)
		if err != nil {
			return model.Credential{}, fmt.Errorf("read %s: %w", key, err)
		}
		if strings.TrimSpace(v) != "" {
			token = v
			break
		}
	}
	if token == "" {
		return model.Credential{}, &model.APIError{
			Kind:    model.KindUnauthenticated,
			Message: "no credential stored; log in first",
		}
	}

	tokenType, err := s.store.Get(ctx, KeyTokenType)
	if err != nil {
		return model.Credential{}, fmt.Errorf("read %s: %w", KeyTokenType, err)
	}
	if tokenType == "" {
		tokenType = model.DefaultTokenType
	}

	cred := model.Credential{Token: token, TokenType: tokenType}

	// The timestamp is advisory; an unreadable one is ignored.
	if ts, err := s.store.Get(ctx, KeyTokenTimestamp); err == nil && ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			cred.AcquiredAt = time.UnixMilli(ms)
		}
	}

	return cred, nil
}

// SetCredential writes cred under every key the resolution order reads first,
// plus its type and acquisition time (Unix milliseconds).
func (s *Session) SetCredential(ctx context.Context, cred model.Credential) error {
	if cred.IsZero() {
		return errors.New("set credential: empty token")
	}

	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = model.DefaultTokenType
	}
	acquiredAt := cred.AcquiredAt
	if acquiredAt.IsZero() {
		acquiredAt = s.now()
	}

	writes := []struct{ key, value string }{
		{KeyAccessToken, cred.Token},
		{KeyToken, cred.Token},
		{KeyTokenType, tokenType},
		{KeyTokenTimestamp, strconv.FormatInt(acquiredAt.UnixMilli(), 10)},
	}
	for _, w := range writes {
		if err := s.store.Set(ctx, w.key, w.value); err != nil {
			return fmt.Errorf("write %s: %w", w.key, err)
		}
	}
	return nil
}

// ClearCredential removes every credential key. It attempts all deletions and
// returns the joined errors.
func (s *Session) ClearCredential(ctx context.Context) error {
	var errs []error
	for _, key := range credentialKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// State reports whether a credential is currently stored.
func (s *Session) State(ctx context.Context) (model.SessionState, error) {
	_, err := s.ResolveCredential(ctx)
	switch {
	case err == nil:
		return model.SessionAuthenticated, nil
	case model.IsKind(err, model.KindUnauthenticated):
		return model.SessionUnauthenticated, nil
	default:
		return "", err
	}
}

// Describe reports the session state and, when authenticated, which key
// holds the token, its type, when it was acquired and when the store last
// wrote it. The token value is never included.
func (s *Session) Describe(ctx context.Context) (model.SessionInfo, error) {
	state, err := s.State(ctx)
	if err != nil {
		return model.SessionInfo{}, err
	}
	info := model.SessionInfo{State: state}
	if state != model.SessionAuthenticated {
		return info, nil
	}

	cred, err := s.ResolveCredential(ctx)
	if err != nil {
		return model.SessionInfo{}, err
	}
	info.TokenType = cred.TokenType
	if !cred.AcquiredAt.IsZero() {
		acquiredAt := cred.AcquiredAt
		info.AcquiredAt = &acquiredAt
	}

	values, err := s.store.List(ctx)
	if err != nil {
		return model.SessionInfo{}, fmt.Errorf("list credential store: %w", err)
	}
	byKey := make(map[string]model.StoredValue, len(values))
	for _, v := range values {
		byKey[v.Key] = v
	}
	for _, key := range tokenKeys {
		v, ok := byKey[key]
		if !ok || strings.TrimSpace(v.Value) == "" {
			continue
		}
		info.TokenKey = key
		if !v.UpdatedAt.IsZero() {
			updatedAt := v.UpdatedAt
			info.UpdatedAt = &updatedAt
		}
		break
	}
	return info, nil
}
