package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/apipost/internal/cookies"
	"github.com/artpar/apipost/internal/tui"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// NewCookiesCommand creates the cookies command and its subcommands.
func NewCookiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect and clear cookies kept between requests",
	}

	cmd.AddCommand(newCookiesListCommand())
	cmd.AddCommand(newCookiesClearCommand())
	cmd.AddCommand(newCookiesPruneCommand())
	return cmd
}

func withCookies(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd, globalsFrom(cmd), sessionOptions{cookies: true})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newCookiesListCommand() *cobra.Command {
	var (
		domain string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCookies(cmd, func(s *session) error {
				list, err := s.jar.List(cmd.Context(), domain)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if list == nil {
						list = []cookies.Cookie{}
					}
					encoder := json.NewEncoder(out)
					encoder.SetIndent("", "  ")
					return encoder.Encode(list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No cookies")
					return nil
				}
				fmt.Fprintln(out, renderCookieTable(list))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Only cookies for this domain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output cookies as JSON")
	return cmd
}

func renderCookieTable(list []cookies.Cookie) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		expires := "session"
		if !c.Session() {
			expires = c.Expires.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{c.Domain, c.Path, c.Name, tui.Truncate(c.Value, 32), expires})
	}

	header := lipgloss.NewStyle().Bold(true)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		Headers("DOMAIN", "PATH", "NAME", "VALUE", "EXPIRES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle()
		}).
		String()
}

func newCookiesClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [DOMAIN]",
		Short: "Delete all cookies, or those of one domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCookies(cmd, func(s *session) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					n, err := s.jar.ClearDomain(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d cookies for %s\n", n, args[0])
					return nil
				}
				if err := s.jar.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Cookies cleared")
				return nil
			})
		},
	}
}

func newCookiesPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCookies(cmd, func(s *session) error {
				n, err := s.jar.Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired cookies\n", n)
				return nil
			})
		},
	}
}
