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
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command.
type TasksCmd struct {
	tenant string
}

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return nil }
func (c *TasksCmd) Synopsis() string  { return "Print the assigned task list" }
func (c *TasksCmd) Usage() string     { return "lcwatch tasks [common flags] [--tenant <id>]" }
func (c *TasksCmd) NeedsAuth() bool   { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.tenant, "tenant", "", "")
}

// SetTenant sets the tenant filter (for testing).
func (c *TasksCmd) SetTenant(id string) {
	c.tenant = id
}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	tenants := svc.Tenants()
	if c.tenant != "" {
		tenants = filterTenants(tenants, c.tenant)
		if len(tenants) == 0 {
			fmt.Fprintf(errOut, "error: unknown tenant: %s\n", c.tenant)
			return exitcode.UserError
		}
	}
	if len(tenants) == 0 {
		fmt.Fprintln(errOut, "error: no tenants configured")
		return exitcode.UserError
	}

	single := len(tenants) == 1
	for _, t := range tenants {
		if !single {
			output.FormatTenantHeader(out, t)
		}
		snap, err := svc.Fetch(ctx, t.ID)
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
		if len(snap.Tasks) == 0 {
			if !cfg.Quiet {
				fmt.Fprintln(out, "no tasks")
			}
			continue
		}
		for i, task := range snap.Tasks {
			output.FormatTask(out, i+1, task)
		}
	}
	return exitcode.Success
}

func filterTenants(tenants []service.Tenant, id string) []service.Tenant {
	for _, t := range tenants {
		if t.ID == id {
			return []service.Tenant{t}
		}
	}
	return nil
}
