package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

var (
	// ErrInvalidFinancial is returned before any network call when financial
	// values are out of range.
	ErrInvalidFinancial = errors.New("invalid financial values")
	// ErrEditNotAllowed is returned when a non-admin edit breaks the role rules.
	ErrEditNotAllowed = errors.New("edit not allowed")
)

const (
	defaultNotifyTimeout     = 10 * time.Second
	defaultReportConcurrency = 4
)

// RecordServiceOptions configures a RecordService. Zero values select
// defaults; a nil Notifier disables notifications.
type RecordServiceOptions struct {
	Notifier          driven.Notifier
	NotifyTimeout     time.Duration
	ReportConcurrency int
	Logger            *slog.Logger
}

// RecordService manages records and their attachments, costs, expenses and
// financial data.
type RecordService struct {
	exec              Executor
	notifier          driven.Notifier
	notifyTimeout     time.Duration
	reportConcurrency int
	logger            *slog.Logger

	pending sync.WaitGroup
}

// NewRecordService creates a RecordService.
func NewRecordService(exec Executor, opts RecordServiceOptions) *RecordService {
	s := &RecordService{
		exec:              exec,
		notifier:          opts.Notifier,
		notifyTimeout:     opts.NotifyTimeout,
		reportConcurrency: opts.ReportConcurrency,
		logger:            opts.Logger,
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = defaultNotifyTimeout
	}
	if s.reportConcurrency <= 0 {
		s.reportConcurrency = defaultReportConcurrency
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// List returns every record visible to the caller.
func (s *RecordService) List(ctx context.Context) ([]model.Record, error) {
	return fetch[[]model.Record](ctx, s.exec, model.Request{URL: "/records/"})
}

// ListFor returns the records user may work on: all of them for an admin,
// otherwise only those assigned to user as provider.
func (s *RecordService) ListFor(ctx context.Context, user model.User) ([]model.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return records, nil
	}
	return assignedTo(records, user.ID), nil
}

func assignedTo(records []model.Record, providerID int64) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.Provider != nil && r.Provider.ID == providerID {
			out = append(out, r)
		}
	}
	return out
}

// Get returns record id with its items.
func (s *RecordService) Get(ctx context.Context, id int64) (model.Record, error) {
	return fetch[model.Record](ctx, s.exec, model.Request{URL: recordPath(id)})
}

// Create uploads a new record with its initial attachments, costs and
// expenses in one multipart body.
func (s *RecordService) Create(ctx context.Context, rec model.NewRecord) (model.Record, error) {
	form := &model.MultipartForm{}
	if err := form.AddJSONField("record_data", rec.Fields); err != nil {
		return model.Record{}, err
	}
	form.AddField("provider_id", formatID(rec.ProviderID)).
		AddField("client_id", formatID(rec.ClientID)).
		AddField("register_date", rec.RegisterDate)

	for _, item := range rec.Attachments {
		form.AddField("attachment_titles", item.Title).
			AddField("attachment_descriptions", item.Description)
		addItemFile(form, "attachment_files", item)
	}
	for _, item := range rec.Costs {
		form.AddField("cost_titles", item.Title).
			AddField("cost_values", item.Value)
		addItemFile(form, "cost_files", item)
	}
	for _, item := range rec.Expenses {
		form.AddField("expense_titles", item.Title).
			AddField("expense_values", item.Value)
		addItemFile(form, "expense_files", item)
	}

	created, err := fetch[model.Record](ctx, s.exec, model.Request{
		Method: http.MethodPost,
		URL:    "/records/",
		Form:   form,
	})
	if err != nil {
		return model.Record{}, err
	}
	s.logger.Info("record created", "record_id", rec.Fields.RecordID, "id", created.ID)
	return created, nil
}

// recordUpdateData is the record_data part of an edit. The API also accepts
// each of these as a top-level form field.
type recordUpdateData struct {
	model.RecordFields
	RegisterDate string `json:"register_date"`
	ClientID     string `json:"client_id"`
	ProviderID   string `json:"provider_id"`
}

// Update saves the basic fields of record id on behalf of editor. A
// non-admin may only keep themselves as provider and may not finalize a
// record. A successful edit is announced, and a delivery separately.
func (s *RecordService) Update(ctx context.Context, editor model.User, id int64, upd model.RecordUpdate) (model.Record, error) {
	if !editor.IsAdmin() {
		if upd.ProviderID != editor.ID {
			return model.Record{}, fmt.Errorf("%w: providers can only assign records to themselves", ErrEditNotAllowed)
		}
		if upd.Fields.Status == model.RecordStatusFinished {
			return model.Record{}, fmt.Errorf("%w: only admins can finalize records", ErrEditNotAllowed)
		}
	}

	data := recordUpdateData{
		RecordFields: upd.Fields,
		RegisterDate: upd.RegisterDate,
		ClientID:     formatID(upd.ClientID),
		ProviderID:   formatID(upd.ProviderID),
	}
	form := &model.MultipartForm{}
	if err := form.AddJSONField("record_data", data); err != nil {
		return model.Record{}, err
	}
	form.AddField("record_id", upd.Fields.RecordID).
		AddField("agency", upd.Fields.Agency).
		AddField("status", string(upd.Fields.Status)).
		AddField("priority", upd.Fields.Priority).
		AddField("document_type", upd.Fields.DocumentType).
		AddField("state", upd.Fields.State).
		AddField("city", upd.Fields.City).
		AddField("researchedName", upd.Fields.ResearchedName).
		AddField("researchedCpf_cnpj", upd.Fields.ResearchedCPFCNPJ).
		AddField("info", upd.Fields.Info).
		AddField("register_date", data.RegisterDate).
		AddField("client_id", data.ClientID).
		AddField("provider_id", data.ProviderID)

	updated, err := fetch[model.Record](ctx, s.exec, model.Request{
		Method: http.MethodPut,
		URL:    recordPath(id),
		Form:   form,
	})
	if err != nil {
		return model.Record{}, err
	}

	s.notify(ctx, fmt.Sprintf("Diligência %s editada por %s", upd.Fields.RecordID, editor.FullName()))
	if upd.Fields.Status == model.RecordStatusDelivered {
		s.notify(ctx, fmt.Sprintf("Diligência %s entregue: %s, %s/%s",
			upd.Fields.RecordID, upd.Fields.ResearchedName, upd.Fields.City, upd.Fields.State))
	}
	return updated, nil
}

// Delete removes record id and every file attached to it.
func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := run(ctx, s.exec, model.Request{Method: http.MethodDelete, URL: recordPath(id)}); err != nil {
		return err
	}
	s.logger.Info("record deleted", "id", id)
	return nil
}

// AddItem uploads one attachment, cost or expense to record id.
func (s *RecordService) AddItem(ctx context.Context, id int64, kind model.ItemKind, item model.NewItem) error {
	form := &model.MultipartForm{}
	form.AddField("title", item.Title)
	if kind == model.ItemAttachment {
		form.AddField("description", item.Description)
	} else {
		form.AddField("value", item.Value)
	}
	addItemFile(form, "file", item)

	return run(ctx, s.exec, model.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s/", recordPath(id), kind.Endpoint()),
		Form:   form,
	})
}

// RemoveItem deletes the item of the given kind titled title from record id.
func (s *RecordService) RemoveItem(ctx context.Context, id int64, kind model.ItemKind, title string) error {
	return run(ctx, s.exec, model.Request{
		Method: http.MethodDelete,
		URL: fmt.Sprintf("%s/%s/?%s=%s",
			recordPath(id), kind.Endpoint(), kind.TitleParam(), escapeComponent(title)),
	})
}

// Financial returns the financial summary of record id.
func (s *RecordService) Financial(ctx context.Context, id int64) (model.Financial, error) {
	return fetch[model.Financial](ctx, s.exec, model.Request{URL: recordPath(id) + "/financial"})
}

// financialBody is what the API accepts; profit is computed server-side.
type financialBody struct {
	RecordID        int64   `json:"record_id"`
	DiligenceValue  float64 `json:"diligence_value"`
	ProviderPayment float64 `json:"provider_payment"`
}

// UpdateFinancial saves the diligence value and provider payment of record
// id and returns the stored summary.
func (s *RecordService) UpdateFinancial(ctx context.Context, id int64, f model.Financial) (model.Financial, error) {
	if err := ValidateFinancial(f); err != nil {
		return model.Financial{}, err
	}
	return fetch[model.Financial](ctx, s.exec, model.Request{
		Method: http.MethodPut,
		URL:    recordPath(id) + "/financial",
		JSON: financialBody{
			RecordID:        id,
			DiligenceValue:  float64(f.DiligenceValue),
			ProviderPayment: float64(f.ProviderPayment),
		},
	})
}

// Close marks record id as fechada.
func (s *RecordService) Close(ctx context.Context, id int64) error {
	return run(ctx, s.exec, model.Request{Method: http.MethodPatch, URL: recordPath(id) + "/close"})
}

// CloseWithFinancial saves the financial summary and then closes the record.
// The record stays open if saving the summary fails.
func (s *RecordService) CloseWithFinancial(ctx context.Context, id int64, f model.Financial) error {
	saved, err := s.UpdateFinancial(ctx, id, f)
	if err != nil {
		return fmt.Errorf("save financial: %w", err)
	}
	if err := s.Close(ctx, id); err != nil {
		return fmt.Errorf("close record: %w", err)
	}

	s.logger.Info("record closed", "id", id, "profit", float64(saved.Profit))
	s.notify(ctx, fmt.Sprintf("Diligência %d fechada: valor R$ %.2f, prestador R$ %.2f",
		id, float64(f.DiligenceValue), float64(f.ProviderPayment)))
	return nil
}

// ValidateFinancial checks that the diligence value is positive and the
// provider payment lies between zero and the diligence value.
func ValidateFinancial(f model.Financial) error {
	switch {
	case f.DiligenceValue <= 0:
		return fmt.Errorf("%w: diligence value must be greater than zero", ErrInvalidFinancial)
	case f.ProviderPayment < 0:
		return fmt.Errorf("%w: provider payment cannot be negative", ErrInvalidFinancial)
	case f.ProviderPayment > f.DiligenceValue:
		return fmt.Errorf("%w: provider payment cannot exceed the diligence value", ErrInvalidFinancial)
	}
	return nil
}

// Reports returns the report records matching filter, each finished or
// closed one enriched with its financial summary. A summary that cannot be
// loaded is logged and left empty, unless the session itself was rejected.
func (s *RecordService) Reports(ctx context.Context, filter model.ReportFilter) ([]model.Record, error) {
	all, err := fetch[[]model.Record](ctx, s.exec, model.Request{URL: "/records/reports/"})
	if err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(all))
	for _, r := range all {
		if filter.Match(r) {
			records = append(records, r)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reportConcurrency)
	for i := range records {
		if !records[i].Status.HasFinancial() || records[i].Financial != nil {
			continue
		}
		g.Go(func() error {
			f, err := s.Financial(gctx, records[i].ID)
			if err != nil {
				if isSessionError(err) {
					return err
				}
				s.logger.Warn("financial summary unavailable", "id", records[i].ID, "error", err)
				return nil
			}
			records[i].Financial = &f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Wait blocks until every pending notification has been delivered or has
// timed out.
func (s *RecordService) Wait() {
	s.pending.Wait()
}

// notify posts text on its own goroutine, detached from the caller's
// cancellation but bounded by the notify timeout.
func (s *RecordService) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
	}()
}

func isSessionError(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == model.KindUnauthenticated || apiErr.IsUnauthorized()
}

func addItemFile(form *model.MultipartForm, field string, item model.NewItem) {
	if item.File == nil {
		return
	}
	name := item.FileName
	if name == "" {
		name = item.Title
	}
	form.AddFile(field, name, item.File)
}

// escapeComponent escapes a query value with spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func recordPath(id int64) string {
	return "/records/" + formatID(id)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
