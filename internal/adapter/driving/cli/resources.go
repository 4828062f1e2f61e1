package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

func (h *Handler) requestCommand() *cobra.Command {
	var data string
	var fields, files []string

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request and print the JSON payload",
		Long: `Send an arbitrary authenticated request. PATH is relative to the API
base URL unless absolute.

--data sends a JSON body. --field name=value and --file name=path build a
multipart body instead; both may be repeated.`,
		Example: `  diligencias request GET /records/
  diligencias request POST /clients/ --data '{"name":"ACME","cpf_cnpj":"123"}'
  diligencias request POST /records/5/costs/ --field title=Taxa --field value=35 --file file=taxa.pdf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := model.Request{Method: strings.ToUpper(args[0]), URL: args[1]}

			if data != "" && (len(fields) > 0 || len(files) > 0) {
				return errors.New("--data cannot be combined with --field or --file")
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data is not valid JSON")
				}
				req.JSON = json.RawMessage(data)
			}
			if len(fields) > 0 || len(files) > 0 {
				form, closeFiles, err := buildForm(fields, files)
				if err != nil {
					return err
				}
				defer closeFiles()
				req.Form = form
			}

			resp, err := h.auth.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writePayload(cmd, resp)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&fields, "field", "F", nil, "multipart text field name=value")
	cmd.Flags().StringArrayVar(&files, "file", nil, "multipart file field name=path")
	return cmd
}

// buildForm assembles a multipart form. On success the returned func closes
// every file opened for it; on failure nothing is left open.
func buildForm(fields, files []string) (*model.MultipartForm, func(), error) {
	form := &model.MultipartForm{}
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, kv := range fields {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("--field %q must be name=value", kv)
		}
		form.AddField(name, value)
	}
	for _, kv := range files {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || name == "" || path == "" {
			closeAll()
			return nil, nil, fmt.Errorf("--file %q must be name=path", kv)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		opened = append(opened, f)
		form.AddFile(name, filepath.Base(path), f)
	}
	return form, closeAll, nil
}

// writePayload prints the raw payload indented, or null for 204.
func writePayload(cmd *cobra.Command, resp *model.Response) error {
	if resp.IsNull() {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Payload, "", "  "); err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func (h *Handler) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every user (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := h.users.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), users)
		},
	}

	var newUser model.NewUser
	var passwordFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user (admin only)",
		Long: `Register a user. The password is read the same way as for login:
from --password-file, an interactive prompt, or the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}
			newUser.Password = password
			newUser.PasswordConfirmation = password
			u, err := h.users.Create(cmd.Context(), newUser)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u)
		},
	}
	create.Flags().StringVar(&newUser.Name, "name", "", "first name (required)")
	create.Flags().StringVar(&newUser.LastName, "last-name", "", "last name")
	create.Flags().StringVar(&newUser.Email, "email", "", "login email (required)")
	create.Flags().StringVar(&newUser.Type, "type", model.UserTypeUser, "role: user or admin")
	create.Flags().StringVar(&newUser.Birthday, "birthday", "", "birth date, YYYY-MM-DD")
	create.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	var password string
	reset := &cobra.Command{
		Use:   "reset-password ID",
		Short: "Reset a user's password (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := h.users.ResetPassword(cmd.Context(), id, password); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "password of user %d reset", id)
		},
	}
	reset.Flags().StringVar(&password, "password", "", "new password (defaults to the standard reset password)")

	cmd.AddCommand(list, create, h.usersUpdateCommand(), h.usersPasswdCommand(), reset)
	return cmd
}

func (h *Handler) usersUpdateCommand() *cobra.Command {
	var upd model.UserUpdate
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your own profile",
		Long:  "Update your own profile. Fields without a flag keep their current value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := h.users.Me(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			next := model.UserUpdate{Name: me.Name, LastName: me.LastName, Email: me.Email, Birthday: me.Birthday}
			if flags.Changed("name") {
				next.Name = upd.Name
			}
			if flags.Changed("last-name") {
				next.LastName = upd.LastName
			}
			if flags.Changed("email") {
				next.Email = upd.Email
			}
			if flags.Changed("birthday") {
				next.Birthday = upd.Birthday
			}

			u, err := h.users.Update(cmd.Context(), me.ID, next)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&upd.Name, "name", "", "first name")
	cmd.Flags().StringVar(&upd.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&upd.Email, "email", "", "login email")
	cmd.Flags().StringVar(&upd.Birthday, "birthday", "", "birth date, YYYY-MM-DD")
	return cmd
}

func (h *Handler) usersPasswdCommand() *cobra.Command {
	var currentFile, newFile string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		Long: `Change your own password. Piped stdin supplies three lines: the current
password, the new password and its confirmation. --new-password-file
replaces the last two.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			passwords := newPasswordReader(cmd)
			current, err := passwords.read(currentFile, "Current password: ")
			if err != nil {
				return err
			}
			next, err := passwords.read(newFile, "New password: ")
			if err != nil {
				return err
			}
			if newFile == "" {
				confirmation, err := passwords.read("", "Confirm new password: ")
				if err != nil {
					return err
				}
				if confirmation != next {
					return application.ErrPasswordMismatch
				}
			}

			me, err := h.users.Me(cmd.Context())
			if err != nil {
				return err
			}
			if err := h.users.ChangePassword(cmd.Context(), me.ID, current, next); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "password changed")
		},
	}
	cmd.Flags().StringVar(&currentFile, "current-password-file", "", "read the current password from this file")
	cmd.Flags().StringVar(&newFile, "new-password-file", "", "read the new password from this file")
	return cmd
}

func (h *Handler) clientsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"customers"},
		Short:   "Manage clients",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			customers, err := h.customers.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), customers)
		},
	}

	var name, document string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := h.customers.Create(cmd.Context(), model.NewCustomer{Name: name, CPFCNPJ: document})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
	create.Flags().StringVar(&name, "name", "", "client name (required)")
	create.Flags().StringVar(&document, "cpf-cnpj", "", "CPF or CNPJ")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(list, create)
	return cmd
}

func (h *Handler) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the current user and record counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := h.dashboard.Load(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dashboardView{
				User:      d.User,
				Records:   len(d.Records),
				Customers: len(d.Customers),
				Providers: len(d.Providers()),
				ByStatus:  d.StatusCounts,
			})
		},
	}
}

// dashboardView is the printed form of a dashboard.
type dashboardView struct {
	User      model.User                 `json:"user"`
	Records   int                        `json:"records"`
	Customers int                        `json:"customers"`
	Providers int                        `json:"providers"`
	ByStatus  map[model.RecordStatus]int `json:"by_status"`
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
