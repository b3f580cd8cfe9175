package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"lcwatch/internal/config"
	"lcwatch/internal/engine"
	"lcwatch/internal/exitcode"
	"lcwatch/internal/output"
	"lcwatch/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: continuous polling with
// notification lines written as new tasks are detected.
type WatchCmd struct {
	interval int
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Poll continuously and report new tasks" }
func (c *WatchCmd) Usage() string     { return "lcwatch watch [common flags] [--interval <minutes>]" }
func (c *WatchCmd) NeedsAuth() bool   { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.interval, "interval", 0, "")
}

// SetInterval sets the poll interval in minutes (for testing).
func (c *WatchCmd) SetInterval(minutes int) {
	c.interval = minutes
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	interval := time.Duration(c.interval) * time.Minute
	if c.interval == 0 {
		if settings, err := cfg.LoadSettings(); err == nil {
			interval = settings.PollInterval()
		}
	}
	interval = config.ClampInterval(interval)

	if !cfg.Quiet {
		fmt.Fprintf(errOut, "watching (interval %s, Ctrl-C to stop)\n", interval)
	}

	sink := &writerSink{out: out, errOut: errOut, quiet: cfg.Quiet}
	err := svc.Watch(ctx, sink, interval)
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, engine.ErrReauthRequired):
		fmt.Fprintln(errOut, "error: all tenants need re-authorization (run: lcwatch login)")
		return exitcode.AuthError
	case errors.Is(err, engine.ErrNoTenants):
		fmt.Fprintf(errOut, "error: no tenants configured (edit %s)\n", cfg.TenantsPath())
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// writerSink renders watch events as output lines. Events arrive from
// per-tenant polling goroutines, so writes are serialized.
type writerSink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

func (s *writerSink) Snapshot(snap service.Snapshot) {
	if s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	output.FormatTenantHeader(s.out, snap.Tenant)
	output.FormatSnapshot(s.out, snap)
}

func (s *writerSink) NewTask(n service.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	output.FormatNotification(s.out, n)
}

func (s *writerSink) UpdateFailed(t service.Tenant, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	output.FormatUpdateFailed(s.errOut, t, err)
}
