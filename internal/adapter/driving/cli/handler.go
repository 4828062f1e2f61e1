// Package cli is the command-line driving adapter. Each command is a thin
// shell over an application service; output is indented JSON on stdout.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// Authenticator is the session-facing part of the API client.
type Authenticator interface {
	application.Executor
	Login(ctx context.Context, email, password string) (model.Credential, error)
	Logout(ctx context.Context) error
	Describe(ctx context.Context) (model.SessionInfo, error)
}

// Handler builds the command tree over the application services.
type Handler struct {
	auth      Authenticator
	users     *application.UserService
	customers *application.CustomerService
	records   *application.RecordService
	dashboard *application.DashboardService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	auth Authenticator,
	users *application.UserService,
	customers *application.CustomerService,
	records *application.RecordService,
	dashboard *application.DashboardService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		auth:      auth,
		users:     users,
		customers: customers,
		records:   records,
		dashboard: dashboard,
		logger:    logger,
	}
}

// RootCommand returns the "diligencias" command with every subcommand
// attached.
func (h *Handler) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "diligencias",
		Short:         "Command-line client for the diligências API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		h.loginCommand(),
		h.logoutCommand(),
		h.statusCommand(),
		h.whoamiCommand(),
		h.requestCommand(),
		h.usersCommand(),
		h.clientsCommand(),
		h.recordsCommand(),
		h.dashboardCommand(),
	)
	return root
}

// Run executes root and logs which command failed. The error itself is left
// for the caller to report.
func (h *Handler) Run(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		name := root.Name()
		if cmd != nil {
			name = cmd.CommandPath()
		}
		h.logger.Debug("command failed", "command", name, "kind", model.KindOf(err), "error", err)
	}
	return err
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// writeMessage writes a single {"message": ...} object.
func writeMessage(w io.Writer, format string, args ...any) error {
	return writeJSON(w, map[string]string{"message": fmt.Sprintf(format, args...)})
}
