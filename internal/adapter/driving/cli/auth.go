package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (h *Handler) loginCommand() *cobra.Command {
	var email, passwordFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange email and password for an access token",
		Long: `Log in and store the access token in the credential store.

The password is read from --password-file, from an interactive prompt when
stdin is a terminal, or from the first line of stdin otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}

			cred, err := h.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"email":      email,
				"token_type": cred.TokenType,
				"state":      "authenticated",
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (required)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (h *Handler) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), "logged out")
		},
	}
}

func (h *Handler) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the API",
		Long: `Show whether a token is stored and, if so, under which key, its type,
when it was acquired and when the store last wrote it. The token itself is
never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := h.auth.Describe(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}

func (h *Handler) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := h.users.Me(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), me)
		},
	}
}

// readPassword reads from passwordFile if set, otherwise prompts with echo
// disabled on a terminal, otherwise takes the first line of stdin.
func readPassword(cmd *cobra.Command, passwordFile string) (string, error) {
	return newPasswordReader(cmd).read(passwordFile, "Password: ")
}

// passwordReader reads several secrets from one command. Piped stdin is
// buffered once so each secret takes the next line.
type passwordReader struct {
	cmd   *cobra.Command
	lines *bufio.Reader
}

func newPasswordReader(cmd *cobra.Command) *passwordReader {
	return &passwordReader{cmd: cmd}
}

func (p *passwordReader) read(passwordFile, prompt string) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		password := strings.TrimRight(string(data), "\r\n")
		if password == "" {
			return "", fmt.Errorf("file %s is empty", passwordFile)
		}
		return password, nil
	}

	in := p.cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.cmd.ErrOrStderr(), prompt)
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(data), nil
	}

	if p.lines == nil {
		p.lines = bufio.NewReader(in)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password given on stdin")
	}
	return password, nil
}
