package application_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

func TestUserService_Me(t *testing.T) {
	exec := newFakeExecutor().raw(http.MethodGet, "/users/me/",
		`{"id":7,"name":"Ana","last_name":"Souza","email":"ana@x.com","type":"admin"}`)

	me, err := application.NewUserService(exec).Me(context.Background())

	require.NoError(t, err)
	want := model.User{ID: 7, Name: "Ana", LastName: "Souza", Email: "ana@x.com", Type: "admin"}
	if diff := cmp.Diff(want, me); diff != "" {
		t.Errorf("Me() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, me.IsAdmin())
	assert.Equal(t, "Ana Souza", me.FullName())
}

func TestUserService_MePropagatesClassifiedError(t *testing.T) {
	unauth := &model.APIError{Kind: model.KindUnauthenticated, Message: "no credential"}
	exec := newFakeExecutor().fail(http.MethodGet, "/users/me/", unauth)

	_, err := application.NewUserService(exec).Me(context.Background())

	assert.ErrorIs(t, err, unauth)
	assert.Equal(t, model.KindUnauthenticated, model.KindOf(err))
}

func TestUserService_List(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodGet, "/users/", []model.User{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})

	users, err := application.NewUserService(exec).List(context.Background())

	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserService_Create(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodPost, "/users/", model.User{ID: 3, Name: "Caio"})
	svc := application.NewUserService(exec)

	u, err := svc.Create(context.Background(), model.NewUser{
		Name:                 "Caio",
		Email:                "caio@x.com",
		Password:             "s3cret!",
		PasswordConfirmation: "s3cret!",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	calls := exec.Calls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"name":"Caio","last_name":"","email":"caio@x.com","password":"s3cret!","password_confirmation":"s3cret!","type":"user"}`, calls[0].JSON)
}

func TestUserService_CreatePasswordMismatch(t *testing.T) {
	exec := newFakeExecutor()

	_, err := application.NewUserService(exec).Create(context.Background(), model.NewUser{
		Password:             "a",
		PasswordConfirmation: "b",
	})

	assert.ErrorIs(t, err, application.ErrPasswordMismatch)
	assert.Empty(t, exec.Calls())
}

func TestUserService_Update(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodPut, "/users/7", model.User{ID: 7, Name: "Ana Maria"})

	u, err := application.NewUserService(exec).Update(context.Background(), 7, model.UserUpdate{
		Name:     "Ana Maria",
		LastName: "Souza",
		Email:    "ana@x.com",
		Birthday: "1990-04-01",
	})

	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", u.Name)
	assert.JSONEq(t, `{"name":"Ana Maria","last_name":"Souza","email":"ana@x.com","birthday":"1990-04-01"}`, exec.Calls()[0].JSON)
}

func TestUserService_ChangePassword(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodPut, "/users/7/password", map[string]string{"message": "ok"})

	err := application.NewUserService(exec).ChangePassword(context.Background(), 7, "old", "new")

	require.NoError(t, err)
	assert.JSONEq(t, `{"current_password":"old","new_password":"new"}`, exec.Calls()[0].JSON)
}

func TestUserService_ResetPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{name: "explicit", password: "n3w-pass", want: `{"new_password":"n3w-pass"}`},
		{name: "default", password: "", want: `{"new_password":"12345678"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newFakeExecutor().on(http.MethodPost, "/users/4/reset-password", nil)

			err := application.NewUserService(exec).ResetPassword(context.Background(), 4, tt.password)

			require.NoError(t, err)
			assert.JSONEq(t, tt.want, exec.Calls()[0].JSON)
		})
	}
}
