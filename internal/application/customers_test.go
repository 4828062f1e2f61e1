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

func TestCustomerService_List(t *testing.T) {
	exec := newFakeExecutor().raw(http.MethodGet, "/clients/",
		`[{"id":1,"name":"ACME","cpf_cnpj":"12.345.678/0001-90"},{"id":2,"name":"Banco X"}]`)

	customers, err := application.NewCustomerService(exec).List(context.Background())

	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "12.345.678/0001-90", customers[0].CPFCNPJ)
	assert.Empty(t, customers[1].CPFCNPJ)
}

func TestCustomerService_ListEmptyOnNoContent(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodGet, "/clients/", nil)

	customers, err := application.NewCustomerService(exec).List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestCustomerService_Create(t *testing.T) {
	exec := newFakeExecutor().on(http.MethodPost, "/clients/", model.Customer{ID: 9, Name: "ACME"})

	c, err := application.NewCustomerService(exec).Create(context.Background(), model.NewCustomer{Name: "  ACME ", CPFCNPJ: "123"})

	require.NoError(t, err)
	assert.Equal(t, int64(9), c.ID)
	assert.JSONEq(t, `{"name":"ACME","cpf_cnpj":"123"}`, exec.Calls()[0].JSON)
}

func TestCustomerService_CreateRequiresName(t *testing.T) {
	exec := newFakeExecutor()

	_, err := application.NewCustomerService(exec).Create(context.Background(), model.NewCustomer{Name: " "})

	require.Error(t, err)
	assert.Empty(t, exec.Calls())
}
