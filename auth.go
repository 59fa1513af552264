package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/config"
	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// literalCookie adapts a pasted cookie string to quark.CredentialSource
// for the pre-store verification call.
type literalCookie string

func (c literalCookie) Cookie() (string, error) {
	return string(c), nil
}

func newVerifyClient(cookie string, logger *slog.Logger) *quark.Client {
	return quark.NewClient(literalCookie(cookie), nil, logger)
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [cookie]",
		Short: "Store the web session cookie",
		Long: `Store the Quark web session cookie for API access.

Sign in at https://pan.quark.cn in a browser, copy the Cookie request
header from the developer tools, and pass it as the argument or paste
it when prompted. The cookie is verified against the account endpoint
before it is stored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	var cookie string

	if len(args) == 1 {
		cookie = args[0]
	} else {
		statusf("Paste your pan.quark.cn cookie and press enter:\n")

		reader := bufio.NewReader(os.Stdin)

		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading cookie: %w", err)
		}

		cookie = line
	}

	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return fmt.Errorf("empty cookie")
	}

	// Verify before storing so a mispasted cookie fails loudly now,
	// not on the first real command.
	logger := buildLogger()
	client := newVerifyClient(cookie, logger)

	nickname, err := client.AccountNickname(cmd.Context())
	if err != nil {
		return fmt.Errorf("verifying cookie: %w", err)
	}

	if err := config.StoreCookie(cookiePath(), cookie); err != nil {
		return err
	}

	successf("Logged in as %s\n", nickname)

	return nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newDriveClient(buildLogger())

			nickname, err := client.AccountNickname(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, nickname)

			return nil
		},
	}
}
