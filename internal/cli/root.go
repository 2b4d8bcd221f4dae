package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apipost",
		Short: "apipost - compose and send HTTP requests",
		Long: `apipost is a terminal HTTP request composer.

Pick a method, type a URL, add headers and a body (raw text or a
key/value table), then send. Curl commands can be pasted in and copied
back out. Every response is kept in a local history, cookies persist
between runs, and {{name}} placeholders are filled from settings.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, globalsFrom(cmd), sessionOptions{history: true})
			if err != nil {
				return err
			}
			defer s.Close()
			return runTUI(s.composer)
		},
	}

	cmd.PersistentFlags().String("config", "", "Settings directory (default $APIPOST_CONFIG_DIR or the user config dir)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Write debug logs to stderr")

	cmd.AddCommand(NewSendCommand())
	cmd.AddCommand(NewCurlCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewCookiesCommand())
	cmd.AddCommand(NewPrettyCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
