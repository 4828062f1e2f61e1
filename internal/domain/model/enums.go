package model

// RecordStatus is the lifecycle state of a record.
type RecordStatus string

const (
	RecordStatusActive    RecordStatus = "ativa"
	RecordStatusSuspended RecordStatus = "suspensa"
	RecordStatusDelivered RecordStatus = "entregue"
	RecordStatusFinished  RecordStatus = "finalizada"
	RecordStatusClosed    RecordStatus = "fechada"
)

// RecordStatuses lists every status in workflow order.
var RecordStatuses = []RecordStatus{
	RecordStatusActive,
	RecordStatusSuspended,
	RecordStatusDelivered,
	RecordStatusFinished,
	RecordStatusClosed,
}

// Label returns the display label used by the screens.
func (s RecordStatus) Label() string {
	switch s {
	case RecordStatusActive:
		return "Ativa"
	case RecordStatusSuspended:
		return "Suspensa"
	case RecordStatusDelivered:
		return "Entregue"
	case RecordStatusFinished:
		return "Finalizada"
	case RecordStatusClosed:
		return "Fechada"
	}
	return string(s)
}

// HasFinancial reports whether records in this status carry financial data.
func (s RecordStatus) HasFinancial() bool {
	return s == RecordStatusFinished || s == RecordStatusClosed
}

// ItemKind distinguishes the three record sub-resources.
type ItemKind string

const (
	ItemAttachment ItemKind = "attachment"
	ItemCost       ItemKind = "cost"
	ItemExpense    ItemKind = "expense"
)

// Endpoint returns the sub-resource path segment, e.g. "costs".
func (k ItemKind) Endpoint() string {
	switch k {
	case ItemCost:
		return "costs"
	case ItemExpense:
		return "expenses"
	}
	return "attachments"
}

// TitleParam returns the query parameter used to address an item by title
// on deletion.
func (k ItemKind) TitleParam() string {
	switch k {
	case ItemCost:
		return "cost_title"
	case ItemExpense:
		return "expense_title"
	}
	return "attachment_title"
}

// User roles.
const (
	UserTypeAdmin = "admin"
	UserTypeUser  = "user"
)
