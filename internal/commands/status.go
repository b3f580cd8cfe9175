package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"lcwatch/internal/config"
	"lcwatch/internal/exitcode"
	"lcwatch/internal/lcapi"
	"lcwatch/internal/output"
	"lcwatch/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command: one poll cycle per tenant and a
// snapshot summary each.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"st"} }
func (c *StatusCmd) Synopsis() string  { return "Print a snapshot summary per tenant" }
func (c *StatusCmd) Usage() string     { return "lcwatch status [common flags]" }
func (c *StatusCmd) NeedsAuth() bool   { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	tenants := svc.Tenants()
	if len(tenants) == 0 {
		fmt.Fprintln(errOut, "error: no tenants configured")
		return exitcode.UserError
	}

	failures := 0
	authFailures := 0
	for _, t := range tenants {
		output.FormatTenantHeader(out, t)
		snap, err := svc.Fetch(ctx, t.ID)
		if err != nil {
			failures++
			if lcapi.IsAuth(err) {
				authFailures++
				fmt.Fprintln(out, "unavailable: not authorized (run: lcwatch login)")
			} else {
				fmt.Fprintf(out, "unavailable: %v\n", err)
			}
			continue
		}
		output.FormatSnapshot(out, snap)
	}

	// Every tenant failing auth means the whole setup needs
	// re-authorization; partial failures leave the rest usable.
	if authFailures == len(tenants) {
		fmt.Fprintln(errOut, "error: all tenants need re-authorization (run: lcwatch login)")
		return exitcode.AuthError
	}
	if failures == len(tenants) {
		return exitcode.BackendError
	}
	return exitcode.Success
}
