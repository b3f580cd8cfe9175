package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"lcwatch/internal/config"
	"lcwatch/internal/exitcode"
	"lcwatch/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "lcwatch help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  lcwatch status [common flags]                     Print a snapshot summary per tenant
  lcwatch tasks [common flags] [--tenant <id>]      Print the assigned task list
  lcwatch watch [common flags] [--interval <min>]   Poll tenants and report new tasks
  lcwatch accounts [common flags]                   List accounts visible to the login
  lcwatch login [common flags]                      Authorize via the device flow
  lcwatch logout [common flags]                     Remove stored tokens
  lcwatch help
  lcwatch version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
