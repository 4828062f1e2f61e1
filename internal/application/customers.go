package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// CustomerService lists and creates the agency's clients.
type CustomerService struct {
	exec Executor
}

// NewCustomerService creates a CustomerService.
func NewCustomerService(exec Executor) *CustomerService {
	return &CustomerService{exec: exec}
}

// List returns every customer.
func (s *CustomerService) List(ctx context.Context) ([]model.Customer, error) {
	return fetch[[]model.Customer](ctx, s.exec, model.Request{URL: "/clients/"})
}

// Create registers a customer. The name is required.
func (s *CustomerService) Create(ctx context.Context, c model.NewCustomer) (model.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Customer{}, errors.New("create customer: name is required")
	}
	return fetch[model.Customer](ctx, s.exec, model.Request{
		Method: http.MethodPost,
		URL:    "/clients/",
		JSON:   c,
	})
}
