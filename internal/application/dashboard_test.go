package application_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

func newDashboard(exec application.Executor) *application.DashboardService {
	return application.NewDashboardService(
		application.NewUserService(exec),
		application.NewCustomerService(exec),
		newRecordService(exec, nil),
	)
}

func dashboardRecords() []model.Record {
	return []model.Record{
		{ID: 1, Status: model.RecordStatusActive, Provider: &model.User{ID: 7}},
		{ID: 2, Status: model.RecordStatusActive, Provider: &model.User{ID: 8}},
		{ID: 3, Status: model.RecordStatusDelivered, Provider: &model.User{ID: 7}},
		{ID: 4, Status: model.RecordStatusClosed, Provider: &model.User{ID: 8}},
	}
}

func TestDashboardService_LoadAsAdmin(t *testing.T) {
	exec := newFakeExecutor().
		on(http.MethodGet, "/users/me/", model.User{ID: 1, Name: "Root", Type: model.UserTypeAdmin}).
		on(http.MethodGet, "/users/", []model.User{{ID: 1, Type: model.UserTypeAdmin}, {ID: 7, Type: model.UserTypeUser}, {ID: 8, Type: model.UserTypeUser}}).
		on(http.MethodGet, "/clients/", []model.Customer{{ID: 2, Name: "ACME"}}).
		on(http.MethodGet, "/records/", dashboardRecords())

	d, err := newDashboard(exec).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Root", d.User.Name)
	assert.Len(t, d.Users, 3)
	assert.Len(t, d.Providers(), 2)
	assert.Len(t, d.Customers, 1)
	assert.Len(t, d.Records, 4)
	assert.Equal(t, map[model.RecordStatus]int{
		model.RecordStatusActive:    2,
		model.RecordStatusSuspended: 0,
		model.RecordStatusDelivered: 1,
		model.RecordStatusFinished:  0,
		model.RecordStatusClosed:    1,
	}, d.StatusCounts)
}

func TestDashboardService_LoadAsProvider(t *testing.T) {
	exec := newFakeExecutor().
		on(http.MethodGet, "/users/me/", model.User{ID: 7, Type: model.UserTypeUser}).
		on(http.MethodGet, "/clients/", []model.Customer{{ID: 2, Name: "ACME"}}).
		on(http.MethodGet, "/records/", dashboardRecords())

	d, err := newDashboard(exec).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, d.Users)
	assert.Len(t, d.Records, 2)
	assert.Equal(t, 1, d.StatusCounts[model.RecordStatusActive])
	assert.Equal(t, 1, d.StatusCounts[model.RecordStatusDelivered])

	for _, c := range exec.Calls() {
		assert.NotEqual(t, "/users/", c.URL, "providers do not list users")
	}
}

func TestDashboardService_LoadFailsOnIdentity(t *testing.T) {
	unauth := &model.APIError{Kind: model.KindUnauthenticated, Message: "no credential"}
	exec := newFakeExecutor().fail(http.MethodGet, "/users/me/", unauth)

	_, err := newDashboard(exec).Load(context.Background())

	assert.ErrorIs(t, err, unauth)
	assert.Len(t, exec.Calls(), 1, "nothing else is loaded without an identity")
}

func TestDashboardService_LoadPropagatesFirstError(t *testing.T) {
	exec := newFakeExecutor().
		on(http.MethodGet, "/users/me/", model.User{ID: 1, Type: model.UserTypeAdmin}).
		on(http.MethodGet, "/users/", []model.User{}).
		on(http.MethodGet, "/records/", dashboardRecords()).
		fail(http.MethodGet, "/clients/", &model.APIError{Kind: model.KindUnexpectedHTML, Status: http.StatusBadGateway, Message: "html"})

	_, err := newDashboard(exec).Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, model.KindUnexpectedHTML, model.KindOf(err))
	assert.Contains(t, err.Error(), "load customers")
}

func TestCountByStatus_Empty(t *testing.T) {
	counts := application.CountByStatus(nil)

	assert.Len(t, counts, len(model.RecordStatuses))
	for _, n := range counts {
		assert.Zero(t, n)
	}
}
