package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"

	"lcwatch/internal/config"
	"lcwatch/internal/exitcode"
	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command: it runs the OAuth2 device
// authorization flow and stores the resulting token pair.
type LoginCmd struct{}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authorize via the device flow" }
func (c *LoginCmd) Usage() string     { return "lcwatch login [common flags]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	creds, err := cfg.LoadCredentials()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n\n", err)
		fmt.Fprintln(errOut, "To authenticate with Trados Cloud, lcwatch needs an OAuth client:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. In the Trados Cloud portal, create an application under")
		fmt.Fprintln(errOut, "   Integrations > Applications")
		fmt.Fprintln(errOut, "2. Note its client ID and client secret")
		fmt.Fprintln(errOut, "3. Save them as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.CredentialsPath())
		fmt.Fprintln(errOut, `   {"client_id": "...", "client_secret": "..."}`)
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'lcwatch login' again.")
		return exitcode.AuthError
	}

	// Already logged in with a refreshable token?
	if stored, err := cfg.LoadToken(""); err == nil && stored != nil && stored.RefreshToken != "" {
		probe := lcapi.NewTokenManager(creds.ClientID, creds.ClientSecret, stored)
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := probe.Token(probeCtx)
		cancel()
		if err == nil {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	var token *oauth2.Token
	tm := lcapi.NewTokenManager(creds.ClientID, creds.ClientSecret, nil,
		lcapi.WithPersist(func(t *oauth2.Token) error {
			token = t
			return cfg.SaveToken("", t)
		}))

	session, err := tm.StartDeviceAuthorization(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to start device authorization: %v\n", err)
		return exitcode.AuthError
	}

	fmt.Fprintln(errOut, "Open this URL in your browser and confirm the code:")
	fmt.Fprintln(errOut, session.VerificationURI)
	fmt.Fprintf(errOut, "Code: %s\n", session.UserCode)

	for session.Attempt < lcapi.DeviceMaxAttempts {
		if wait := time.Until(session.NextPollAt); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				fmt.Fprintln(errOut, "error: cancelled")
				return exitcode.AuthError
			}
		}

		outcome, err := tm.PollDeviceAuthorization(ctx, session)
		switch outcome {
		case lcapi.DeviceAuthorized:
			// Seed every configured tenant with the fresh pair so sessions
			// refresh independently from here on.
			if settings, err := cfg.LoadSettings(); err == nil && token != nil {
				for _, t := range settings.Tenants {
					if err := cfg.SaveToken(t.ID, token); err != nil {
						fmt.Fprintf(errOut, "warning: failed to save token for tenant %s: %v\n", t.ID, err)
					}
				}
			}
			if !cfg.Quiet {
				fmt.Fprintln(out, "ok")
			}
			return exitcode.Success
		case lcapi.DevicePending, lcapi.DeviceSlowDown:
			// Keep polling; the session tracks the next allowed poll time.
		case lcapi.DeviceExpired:
			fmt.Fprintln(errOut, "error: device code expired before authorization")
			return exitcode.AuthError
		case lcapi.DeviceDenied:
			fmt.Fprintln(errOut, "error: authorization denied")
			return exitcode.AuthError
		default:
			fmt.Fprintf(errOut, "error: device authorization failed: %v\n", err)
			return exitcode.AuthError
		}
	}

	fmt.Fprintln(errOut, "error: authorization not completed in time")
	return exitcode.AuthError
}
