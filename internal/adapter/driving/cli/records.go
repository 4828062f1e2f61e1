package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

func (h *Handler) recordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage records",
	}
	cmd.AddCommand(
		h.recordsListCommand(),
		h.recordsGetCommand(),
		h.recordsCreateCommand(),
		h.recordsUpdateCommand(),
		h.recordsDeleteCommand(),
		h.recordsAddItemCommand(),
		h.recordsRemoveItemCommand(),
		h.recordsFinancialCommand(),
		h.recordsCloseCommand(),
		h.recordsReportCommand(),
	)
	return cmd
}

func (h *Handler) recordsListCommand() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				records []model.Record
				err     error
			)
			if mine {
				var me model.User
				if me, err = h.users.Me(cmd.Context()); err != nil {
					return err
				}
				records, err = h.records.ListFor(cmd.Context(), me)
			} else {
				records, err = h.records.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only records assigned to you (all records for admins)")
	return cmd
}

func (h *Handler) recordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a record with its attachments, costs and expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := h.records.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

// recordFlags binds the editable record fields shared by create and update.
type recordFlags struct {
	fields       model.RecordFields
	status       string
	providerID   int64
	clientID     int64
	registerDate string
}

func (f *recordFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.fields.RecordID, "record-id", "", "record number")
	flags.StringVar(&f.fields.Name, "name", "", "record name")
	flags.StringVar(&f.fields.Agency, "agency", "", "agency")
	flags.StringVar(&f.status, "status", string(model.RecordStatusActive), "ativa, suspensa, entregue, finalizada or fechada")
	flags.StringVar(&f.fields.Priority, "priority", "", "priority")
	flags.StringVar(&f.fields.DocumentType, "document-type", "", "document type")
	flags.StringVar(&f.fields.State, "state", "", "state (UF)")
	flags.StringVar(&f.fields.City, "city", "", "city")
	flags.StringVar(&f.fields.ResearchedName, "researched-name", "", "name of the researched party")
	flags.StringVar(&f.fields.ResearchedCPFCNPJ, "researched-cpf-cnpj", "", "CPF or CNPJ of the researched party")
	flags.StringVar(&f.fields.Info, "info", "", "free-form notes")
	flags.Int64Var(&f.providerID, "provider", 0, "provider user id")
	flags.Int64Var(&f.clientID, "client", 0, "client id")
	flags.StringVar(&f.registerDate, "register-date", "", "register date, YYYY-MM-DD")
}

// overlay copies every flag the user set onto upd.
func (f *recordFlags) overlay(flags *pflag.FlagSet, upd *model.RecordUpdate) {
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("record-id", &upd.Fields.RecordID, f.fields.RecordID)
	set("name", &upd.Fields.Name, f.fields.Name)
	set("agency", &upd.Fields.Agency, f.fields.Agency)
	set("priority", &upd.Fields.Priority, f.fields.Priority)
	set("document-type", &upd.Fields.DocumentType, f.fields.DocumentType)
	set("state", &upd.Fields.State, f.fields.State)
	set("city", &upd.Fields.City, f.fields.City)
	set("researched-name", &upd.Fields.ResearchedName, f.fields.ResearchedName)
	set("researched-cpf-cnpj", &upd.Fields.ResearchedCPFCNPJ, f.fields.ResearchedCPFCNPJ)
	set("info", &upd.Fields.Info, f.fields.Info)
	set("register-date", &upd.RegisterDate, f.registerDate)
	if flags.Changed("status") {
		upd.Fields.Status = model.RecordStatus(f.status)
	}
	if flags.Changed("provider") {
		upd.ProviderID = f.providerID
	}
	if flags.Changed("client") {
		upd.ClientID = f.clientID
	}
}

func (h *Handler) recordsCreateCommand() *cobra.Command {
	var rf recordFlags
	var attachments, costs, expenses []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a record with its initial attachments, costs and expenses",
		Long: `Register a record. Items are given as TITLE=X[=PATH], where X is the
description of an attachment or the value of a cost or expense, and PATH an
optional file to upload. All item flags may be repeated.`,
		Example: `  diligencias records create --record-id D-101 --provider 7 --client 2 \
    --state PE --city Recife --attachment "Contrato=Assinado=contrato.pdf" --cost "Taxa=35"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files := &openFiles{}
			defer files.closeAll()

			rec := model.NewRecord{
				Fields:       rf.fields,
				ProviderID:   rf.providerID,
				ClientID:     rf.clientID,
				RegisterDate: rf.registerDate,
			}
			rec.Fields.Status = model.RecordStatus(rf.status)
			if rec.RegisterDate == "" {
				rec.RegisterDate = time.Now().Format(time.DateOnly)
			}

			var err error
			if rec.Attachments, err = files.items(attachments, model.ItemAttachment); err != nil {
				return err
			}
			if rec.Costs, err = files.items(costs, model.ItemCost); err != nil {
				return err
			}
			if rec.Expenses, err = files.items(expenses, model.ItemExpense); err != nil {
				return err
			}

			created, err := h.records.Create(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), created)
		},
	}
	rf.bind(cmd.Flags())
	cmd.Flags().StringArrayVar(&attachments, "attachment", nil, "attachment TITLE=DESCRIPTION[=PATH]")
	cmd.Flags().StringArrayVar(&costs, "cost", nil, "cost TITLE=VALUE[=PATH]")
	cmd.Flags().StringArrayVar(&expenses, "expense", nil, "expense TITLE=VALUE[=PATH]")
	_ = cmd.MarkFlagRequired("record-id")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func (h *Handler) recordsUpdateCommand() *cobra.Command {
	var rf recordFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit the basic fields of a record",
		Long: `Edit a record as the logged-in user. Fields without a flag keep their
current value. Providers may only keep themselves as provider and cannot
finalize a record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			me, err := h.users.Me(cmd.Context())
			if err != nil {
				return err
			}
			current, err := h.records.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			upd := currentUpdate(current)
			rf.overlay(cmd.Flags(), &upd)
			updated, err := h.records.Update(cmd.Context(), me, id, upd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), updated)
		},
	}
	rf.bind(cmd.Flags())
	return cmd
}

// currentUpdate is the edit that leaves r unchanged.
func currentUpdate(r model.Record) model.RecordUpdate {
	upd := model.RecordUpdate{
		Fields: model.RecordFields{
			RecordID:          r.RecordID,
			Name:              r.Name,
			Agency:            r.Agency,
			Status:            r.Status,
			Priority:          r.Priority,
			DocumentType:      r.DocumentType,
			State:             r.State,
			City:              r.City,
			ResearchedName:    r.ResearchedName,
			ResearchedCPFCNPJ: r.ResearchedCPFCNPJ,
			Info:              r.Info,
		},
		RegisterDate: r.RegisterDate,
	}
	if len(upd.RegisterDate) > 10 {
		upd.RegisterDate = upd.RegisterDate[:10]
	}
	if r.Client != nil {
		upd.ClientID = r.Client.ID
	}
	if r.Provider != nil {
		upd.ProviderID = r.Provider.ID
	}
	return upd
}

// openFiles tracks the files opened for one upload.
type openFiles struct {
	files []*os.File
}

func (o *openFiles) closeAll() {
	for _, f := range o.files {
		_ = f.Close()
	}
}

// items parses TITLE=X[=PATH] specs, opening each PATH.
func (o *openFiles) items(specs []string, kind model.ItemKind) ([]model.NewItem, error) {
	items := make([]model.NewItem, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("--%s %q must be TITLE=X[=PATH]", kind, spec)
		}
		item := model.NewItem{Title: parts[0]}
		if kind == model.ItemAttachment {
			item.Description = parts[1]
		} else {
			item.Value = parts[1]
		}
		if len(parts) == 3 && parts[2] != "" {
			f, err := os.Open(parts[2])
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", parts[2], err)
			}
			o.files = append(o.files, f)
			item.File = f
			item.FileName = filepath.Base(parts[2])
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *Handler) recordsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record and every file attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := h.records.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "record %d deleted", id)
		},
	}
}

func (h *Handler) recordsAddItemCommand() *cobra.Command {
	var item model.NewItem
	var path string
	cmd := &cobra.Command{
		Use:   "add-item ID attachment|cost|expense",
		Short: "Upload an attachment, cost or expense to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			if path != "" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s: %w", path, err)
				}
				defer f.Close()
				item.File = f
				item.FileName = filepath.Base(path)
			}
			if err := h.records.AddItem(cmd.Context(), id, kind, item); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "%s %q added to record %d", kind, item.Title, id)
		},
	}
	cmd.Flags().StringVar(&item.Title, "title", "", "item title (required)")
	cmd.Flags().StringVar(&item.Description, "description", "", "attachment description")
	cmd.Flags().StringVar(&item.Value, "value", "", "cost or expense value")
	cmd.Flags().StringVar(&path, "file", "", "file to upload")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (h *Handler) recordsRemoveItemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item ID attachment|cost|expense TITLE",
		Short: "Remove an attachment, cost or expense by title",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			if err := h.records.RemoveItem(cmd.Context(), id, kind, args[2]); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "%s %q removed from record %d", kind, args[2], id)
		},
	}
}

func (h *Handler) recordsFinancialCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "financial ID",
		Short: "Show the financial summary of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := h.records.Financial(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), f)
		},
	}
}

func (h *Handler) recordsCloseCommand() *cobra.Command {
	var value, payment float64
	cmd := &cobra.Command{
		Use:   "close ID",
		Short: "Save the financial summary of a finished record and close it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f := model.Financial{
				RecordID:        id,
				DiligenceValue:  model.Amount(value),
				ProviderPayment: model.Amount(payment),
			}
			if err := h.records.CloseWithFinancial(cmd.Context(), id, f); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "record %d closed", id)
		},
	}
	cmd.Flags().Float64Var(&value, "value", 0, "diligence value charged to the client (required)")
	cmd.Flags().Float64Var(&payment, "payment", 0, "amount paid to the provider")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (h *Handler) recordsReportCommand() *cobra.Command {
	var filter model.ReportFilter
	var status string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List report records with financial summaries and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = model.RecordStatus(status)
			records, err := h.records.Reports(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reportView{
				Records: records,
				Totals:  model.Totals(records),
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only records in this status")
	cmd.Flags().StringVar(&filter.ClientName, "client", "", "only records of this client name")
	cmd.Flags().StringVar(&filter.State, "state", "", "only records in this state (UF)")
	cmd.Flags().Int64Var(&filter.ProviderID, "provider", 0, "only records of this provider id")
	cmd.Flags().StringVar(&filter.From, "from", "", "first register date, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "last register date, YYYY-MM-DD")
	return cmd
}

// reportView is the printed form of a report.
type reportView struct {
	Records []model.Record     `json:"records"`
	Totals  model.ReportTotals `json:"totals"`
}

func parseKind(s string) (model.ItemKind, error) {
	switch kind := model.ItemKind(s); kind {
	case model.ItemAttachment, model.ItemCost, model.ItemExpense:
		return kind, nil
	}
	return "", fmt.Errorf("invalid item kind %q: want attachment, cost or expense", s)
}
