package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/artpar/apipost/internal/core"
	"github.com/spf13/cobra"
)

// NewPrettyCommand creates a command that indents JSON from a file or stdin.
func NewPrettyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pretty [FILE]",
		Short: "Indent JSON text",
		Long:  "Indent JSON read from FILE or stdin. Text that is not valid JSON is printed unchanged.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), core.PrettyJSON(string(data)))
			return nil
		},
	}
}
