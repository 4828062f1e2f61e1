package model

// Customer is a paying client of the agency. The API calls it "client"; the
// Go name avoids confusion with HTTP clients.
type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	CPFCNPJ string `json:"cpf_cnpj,omitempty"`
}

// NewCustomer is the body of a customer creation.
type NewCustomer struct {
	Name    string `json:"name"`
	CPFCNPJ string `json:"cpf_cnpj"`
}
