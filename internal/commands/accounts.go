package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"lcwatch/internal/config"
	"lcwatch/internal/exitcode"
	"lcwatch/internal/output"
	"lcwatch/internal/service"
)

func init() {
	Register(&AccountsCmd{})
}

// AccountsCmd implements the accounts command.
type AccountsCmd struct{}

func (c *AccountsCmd) Name() string      { return "accounts" }
func (c *AccountsCmd) Aliases() []string { return nil }
func (c *AccountsCmd) Synopsis() string  { return "List accounts visible to the login" }
func (c *AccountsCmd) Usage() string     { return "lcwatch accounts [common flags]" }
func (c *AccountsCmd) NeedsAuth() bool   { return true }

func (c *AccountsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AccountsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	accounts, err := svc.Accounts(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if len(accounts) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no accounts")
		}
		return exitcode.Success
	}

	for _, a := range accounts {
		output.FormatAccount(out, a)
	}
	return exitcode.Success
}
