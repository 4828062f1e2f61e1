package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Record is a case file: one diligência assigned to a provider on behalf of
// a customer.
type Record struct {
	ID                int64        `json:"id"`
	RecordID          string       `json:"record_id"`
	Name              string       `json:"name,omitempty"`
	Agency            string       `json:"agency,omitempty"`
	Status            RecordStatus `json:"status"`
	Priority          string       `json:"priority,omitempty"`
	DocumentType      string       `json:"document_type,omitempty"`
	State             string       `json:"state,omitempty"`
	City              string       `json:"city,omitempty"`
	ResearchedName    string       `json:"researchedName,omitempty"`
	ResearchedCPFCNPJ string       `json:"researchedCpf_cnpj,omitempty"`
	Info              string       `json:"info,omitempty"`
	RegisterDate      string       `json:"register_date,omitempty"`
	LastUpdate        string       `json:"last_update,omitempty"`
	Client            *Customer    `json:"client,omitempty"`
	Provider          *User        `json:"provider,omitempty"`
	Attachments       []RecordItem `json:"attachments,omitempty"`
	Costs             []RecordItem `json:"costs,omitempty"`
	Expenses          []RecordItem `json:"expenses,omitempty"`
	Financial         *Financial   `json:"financial,omitempty"`
}

// TotalExpenses sums the expense values. Costs are excluded, matching the
// reports screen.
func (r Record) TotalExpenses() float64 {
	var total float64
	for _, e := range r.Expenses {
		total += float64(e.Value)
	}
	return total
}

// RecordItem is an attachment, cost or expense. Value is zero for
// attachments.
type RecordItem struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Value       Amount `json:"value,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
}

// Financial is the closing financial summary of a record.
type Financial struct {
	RecordID        int64  `json:"record_id"`
	DiligenceValue  Amount `json:"diligence_value"`
	ProviderPayment Amount `json:"provider_payment"`
	Profit          Amount `json:"profit,omitempty"`
}

// RecordFields is the editable part of a record, sent as the record_data
// JSON part of a multipart body.
type RecordFields struct {
	RecordID          string       `json:"record_id"`
	Name              string       `json:"name,omitempty"`
	Agency            string       `json:"agency,omitempty"`
	Status            RecordStatus `json:"status"`
	Priority          string       `json:"priority,omitempty"`
	DocumentType      string       `json:"document_type,omitempty"`
	State             string       `json:"state,omitempty"`
	City              string       `json:"city,omitempty"`
	ResearchedName    string       `json:"researchedName,omitempty"`
	ResearchedCPFCNPJ string       `json:"researchedCpf_cnpj,omitempty"`
	Info              string       `json:"info,omitempty"`
}

// NewRecord is everything needed to create a record.
type NewRecord struct {
	Fields       RecordFields
	ProviderID   int64
	ClientID     int64
	RegisterDate string
	Attachments  []NewItem
	Costs        []NewItem
	Expenses     []NewItem
}

// NewItem is an attachment, cost or expense being uploaded.
type NewItem struct {
	Title       string
	Description string
	Value       string // Sent as typed by the user; the API parses it.
	FileName    string
	File        io.Reader // Optional.
}

// RecordUpdate is the body of a basic record edit.
type RecordUpdate struct {
	Fields       RecordFields
	RegisterDate string
	ClientID     int64
	ProviderID   int64
}

// Amount is a monetary value. The API sends it either as a JSON number or as
// a numeric string; an empty string or null decodes to zero.
type Amount float64

// UnmarshalJSON accepts numbers and numeric strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}
