package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// ErrPasswordMismatch is returned before any network call when a new
// password and its confirmation differ.
var ErrPasswordMismatch = errors.New("passwords do not match")

// DefaultResetPassword is the password an administrator reset assigns.
const DefaultResetPassword = "12345678"

// UserService manages users and the caller's own profile.
type UserService struct {
	exec Executor
}

// NewUserService creates a UserService.
func NewUserService(exec Executor) *UserService {
	return &UserService{exec: exec}
}

// Me returns the authenticated user. This is the only source of identity;
// the token itself is never decoded.
func (s *UserService) Me(ctx context.Context) (model.User, error) {
	return fetch[model.User](ctx, s.exec, model.Request{URL: "/users/me/"})
}

// List returns every user. Admin only on the server side.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return fetch[[]model.User](ctx, s.exec, model.Request{URL: "/users/"})
}

// Create registers a new user.
func (s *UserService) Create(ctx context.Context, u model.NewUser) (model.User, error) {
	if u.Password != u.PasswordConfirmation {
		return model.User{}, ErrPasswordMismatch
	}
	if u.Type == "" {
		u.Type = model.UserTypeUser
	}
	return fetch[model.User](ctx, s.exec, model.Request{
		Method: http.MethodPost,
		URL:    "/users/",
		JSON:   u,
	})
}

// Update replaces the profile fields of user id.
func (s *UserService) Update(ctx context.Context, id int64, u model.UserUpdate) (model.User, error) {
	return fetch[model.User](ctx, s.exec, model.Request{
		Method: http.MethodPut,
		URL:    fmt.Sprintf("/users/%d", id),
		JSON:   u,
	})
}

// ChangePassword changes the password of user id. The current password is
// verified by the server.
func (s *UserService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	return run(ctx, s.exec, model.Request{
		Method: http.MethodPut,
		URL:    fmt.Sprintf("/users/%d/password", id),
		JSON: map[string]string{
			"current_password": current,
			"new_password":     next,
		},
	})
}

// ResetPassword sets the password of user id without knowing the current
// one. An empty password resets to DefaultResetPassword.
func (s *UserService) ResetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		password = DefaultResetPassword
	}
	return run(ctx, s.exec, model.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("/users/%d/reset-password", id),
		JSON:   map[string]string{"new_password": password},
	})
}
