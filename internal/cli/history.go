package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/artpar/apipost/internal/exporter"
	"github.com/artpar/apipost/internal/history"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and replay previously sent requests",
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryCurlCommand())
	cmd.AddCommand(newHistoryReplayCommand())
	cmd.AddCommand(newHistoryDeleteCommand())
	cmd.AddCommand(newHistoryPruneCommand())
	cmd.AddCommand(newHistoryClearCommand())
	return cmd
}

// withHistory opens a session with the history store and runs fn.
func withHistory(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd, globalsFrom(cmd), sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newHistoryListCommand() *cobra.Command {
	var (
		opts   history.QueryOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				entries, err := s.history.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					encoder := json.NewEncoder(out)
					encoder.SetIndent("", "  ")
					return encoder.Encode(entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No history")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(entries))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Entries to skip")
	cmd.Flags().StringVar(&opts.Method, "method", "", "Only this method")
	cmd.Flags().StringVar(&opts.URLPattern, "url", "", "Only URLs containing this text")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "Only requests that failed to execute")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output entries as JSON")
	return cmd
}

func renderHistoryTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := strconv.Itoa(e.ResponseStatus)
		if e.Failed() {
			status = "ERR"
		}
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.Local().Format(time.DateTime),
			e.RequestMethod,
			status,
			fmt.Sprintf("%dms", e.ResponseTime),
			e.RequestURL,
		})
	}

	header := lipgloss.NewStyle().Bold(true)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		Headers("ID", "TIME", "METHOD", "STATUS", "DURATION", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle()
		}).
		String()
}

func newHistoryShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a stored request and its response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				entry, err := s.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					encoder := json.NewEncoder(out)
					encoder.SetIndent("", "  ")
					return encoder.Encode(entry)
				}

				fmt.Fprintf(out, "%s %s\n", entry.RequestMethod, entry.RequestURL)
				fmt.Fprintf(out, "Sent: %s  Body type: %s\n", entry.Timestamp.Local().Format(time.DateTime), entry.BodyType)
				for _, h := range entry.RequestHeaders {
					fmt.Fprintf(out, "%s: %s\n", h.Key, h.Value)
				}
				if entry.RequestBody != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, entry.RequestBody)
				}
				fmt.Fprintln(out)
				if entry.Failed() {
					fmt.Fprintf(out, "Error: %s\n", entry.Error)
				} else {
					fmt.Fprintf(out, "%s  (%dms, %d bytes)\n", entry.StatusInfo, entry.ResponseTime, entry.ResponseSize)
					fmt.Fprintln(out, entry.ResponseHeaders)
				}
				if entry.ResponseBody != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, entry.ResponseBody)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the entry as JSON")
	return cmd
}

func newHistoryCurlCommand() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "curl ID",
		Short: "Print a stored request as a curl command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				entry, err := s.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				exp := exporter.NewCurlExporter()
				exp.Pretty = pretty
				out, err := exp.Export(entry.Descriptor())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "One option per line")
	return cmd
}

func newHistoryReplayCommand() *cobra.Command {
	var (
		open   bool
		asJSON bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "replay ID",
		Short: "Send a stored request again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				entry, err := s.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				s.composer.Load(entry)
				if open {
					return runTUI(s.composer)
				}
				result, err := s.composer.Send(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, asJSON, pretty)
			})
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "Open the request in the composer instead of sending it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON response bodies")
	return cmd
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				if err := s.history.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Keep only the most recent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				n := keep
				if !cmd.Flags().Changed("keep") {
					n = s.settings.HistoryLimit
				}
				result, err := s.history.Prune(cmd.Context(), n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries (%d bytes)\n", result.DeletedCount, result.FreedBytes)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Entries to keep (default from settings)")
	return cmd
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(s *session) error {
				if err := s.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			})
		},
	}
}
