package model

import "strings"

// ReportFilter narrows a report. Empty fields match everything.
type ReportFilter struct {
	Status     RecordStatus
	ClientName string
	State      string
	ProviderID int64
	From, To   string // Register dates, YYYY-MM-DD, inclusive.
}

// Match reports whether r passes every set criterion. State matching is
// case-insensitive.
func (f ReportFilter) Match(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ClientName != "" && (r.Client == nil || r.Client.Name != f.ClientName) {
		return false
	}
	if f.State != "" && !strings.EqualFold(r.State, f.State) {
		return false
	}
	if f.ProviderID != 0 && (r.Provider == nil || r.Provider.ID != f.ProviderID) {
		return false
	}
	date := r.RegisterDate
	if len(date) > 10 {
		date = date[:10]
	}
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}

// ReportTotals aggregates the financial figures of closed-out records.
type ReportTotals struct {
	Records         int     `json:"records"`
	Expenses        float64 `json:"expenses"`
	DiligenceValue  float64 `json:"diligence_value"`
	ProviderPayment float64 `json:"provider_payment"`
	Profit          float64 `json:"profit"`
}

// Totals sums expenses over every record and financial figures over those
// that carry them.
func Totals(records []Record) ReportTotals {
	var t ReportTotals
	for _, r := range records {
		t.Records++
		t.Expenses += r.TotalExpenses()
		if r.Financial == nil {
			continue
		}
		t.DiligenceValue += float64(r.Financial.DiligenceValue)
		t.ProviderPayment += float64(r.Financial.ProviderPayment)
		t.Profit += float64(r.Financial.Profit)
	}
	return t
}
