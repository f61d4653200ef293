// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/Adembc/lazycrm/internal/adapters/ui"
	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a line from the terminal without echo. Tests replace it.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword()
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List saved connections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			profiles, err := a.profileService.ListProfiles(query)
			if err != nil {
				return err
			}
			return writeProfileTable(cmd.OutOrStdout(), profiles)
		},
	}
}

func writeProfileTable(w io.Writer, profiles []*domain.ConnectionProfile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tMODE\tSERVER\tORGANIZATION\tLAST USED")
	for _, p := range profiles {
		lastUsed := "never"
		if !p.LastUsedOn.IsZero() {
			lastUsed = p.LastUsedOn.Format(time.DateTime)
		}
		org := p.OrganizationFriendlyName
		if org == "" {
			org = p.OrganizationURLName
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ConnectionName, modeName(p), p.ServerName, valueOr(org, "-"), lastUsed)
	}
	return tw.Flush()
}

func modeName(p *domain.ConnectionProfile) string {
	switch {
	case p.UseConnectionString:
		return "connection-string"
	case p.UseOnline:
		return "online"
	case p.UseIfd:
		return "ifd"
	default:
		return "ad"
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

type addOptions struct {
	draft ui.ProfileDraft
	mode  string
}

func newAddCmd(a *app) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a connection",
		Example: `  lazycrm add contoso --mode online --url https://contoso.crm4.dynamics.com --user jdoe@contoso.com --save-password
  lazycrm add onprem --url http://crmsrv:5555/Contoso --user jdoe --domain CONTOSO --save-password
  lazycrm add raw --mode connection-string --connection-string "AuthType=OAuth;Url=https://contoso.crm.dynamics.com"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.draft.Name = args[0]
			profile, err := opts.profile(a.cfg.DefaultTimeout)
			if err != nil {
				return err
			}

			password := ""
			if profile.SavePassword && profile.UserName != "" {
				if password, err = promptPassword(cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}
			if err := a.profileService.AddProfile(profile, password); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added connection %s\n", profile.ConnectionName)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", "ad", "Authentication mode: ad, ifd, online or connection-string")
	f.StringVar(&opts.draft.URL, "url", "", "Organization URL")
	f.StringVar(&opts.draft.ConnectionString, "connection-string", "", "Connection string (connection-string mode)")
	f.StringVar(&opts.draft.Server, "server", "", "Server host name when no URL is given")
	f.StringVar(&opts.draft.Port, "port", "", "Server port when no URL is given")
	f.StringVar(&opts.draft.Organization, "org", "", "Organization URL name when no URL is given")
	f.BoolVar(&opts.draft.UseSSL, "ssl", false, "Use SSL when no URL is given")
	f.StringVar(&opts.draft.User, "user", "", "User name")
	f.StringVar(&opts.draft.Domain, "domain", "", "User domain")
	f.StringVar(&opts.draft.HomeRealm, "home-realm", "", "Home realm URL (ifd mode)")
	f.BoolVar(&opts.draft.SavePassword, "save-password", false, "Prompt for the password and store it encrypted")
	f.StringVar(&opts.draft.Timeout, "timeout", "", "Connection timeout (e.g. 90s, 2m)")
	return cmd
}

func (o *addOptions) profile(defaultTimeout time.Duration) (*domain.ConnectionProfile, error) {
	mode, err := ui.ParseMode(o.mode)
	if err != nil {
		return nil, err
	}
	draft := o.draft
	draft.Mode = mode
	draft.CustomAuth = draft.User != ""
	if draft.Timeout == "" && defaultTimeout > 0 {
		draft.Timeout = defaultTimeout.String()
	}
	return ui.BuildProfile(draft, nil)
}

func newConnectCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "connect <name>",
		Short: "Connect to a saved connection and show the organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, err := a.profileService.Connect(ctx, args[0], force)
			if err != nil {
				return connectError(args[0], err)
			}
			printConnection(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Always open a new session")
	return cmd
}

func connectError(name string, err error) error {
	if errors.Is(err, domain.ErrMissingSecret) {
		return fmt.Errorf("connection %s has no saved password, run: lazycrm passwd %s", name, name)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("connection to %s interrupted", name)
	}
	return err
}

func printConnection(w io.Writer, p *domain.ConnectionProfile) {
	_, _ = fmt.Fprintf(w, "Connected to %s\n", p.ConnectionName)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "  Organization:\t%s (%s)\n", valueOr(p.OrganizationFriendlyName, "-"), valueOr(p.Organization, "-"))
	_, _ = fmt.Fprintf(tw, "  Version:\t%s\n", valueOr(p.OrganizationVersion, "-"))
	_, _ = fmt.Fprintf(tw, "  Web application:\t%s\n", valueOr(p.WebApplicationURL, "-"))
	_, _ = fmt.Fprintf(tw, "  Organization service:\t%s\n", valueOr(p.OrganizationServiceURL, "-"))
	_ = tw.Flush()
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profileService.GetProfile(args[0])
			if err != nil {
				return err
			}
			if err := a.profileService.DeleteProfile(p); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %s\n", p.ConnectionName)
			return nil
		},
	}
}

func newConnectionStringCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connection-string <name>",
		Short: "Print a connection string equivalent to a saved connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profileService.GetProfile(args[0])
			if err != nil {
				return err
			}
			cs, err := a.profileService.ConnectionString(p)
			if err != nil {
				return connectError(p.ConnectionName, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cs)
			return nil
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <name>",
		Short: "Set the saved password of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profileService.GetProfile(args[0])
			if err != nil {
				return err
			}
			password, err := promptPassword(cmd.ErrOrStderr(), "New password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword(cmd.ErrOrStderr(), "Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			edited := p.Clone()
			edited.SavePassword = true
			if err := a.profileService.UpdateProfile(p, edited, password); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password saved for %s\n", p.ConnectionName)
			return nil
		},
	}
}
