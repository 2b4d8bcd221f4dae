package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/artpar/apipost/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the settings file",
	}

	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigSetCommand())
	return cmd
}

func loadSettings(cmd *cobra.Command) (config.Settings, config.Handle, error) {
	return config.Load(globalsFrom(cmd).dir())
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, handle, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), handle.Path)
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, handle, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			data, err := config.Encode(settings, handle.Format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := globalsFrom(cmd).dir()
			_, handle, err := config.Load(dir)
			if err != nil {
				if !force {
					return err
				}
				handle = config.Handle{Path: filepath.Join(dir, "settings.toml"), Format: config.FormatTOML}
			}
			if !force {
				if _, err := os.Stat(handle.Path); err == nil {
					return fmt.Errorf("settings already exist at %s (use --force to overwrite)", handle.Path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			if err := config.Save(config.Default(), handle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", handle.Path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing settings file")
	return cmd
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting and save the file",
		Long: `Change one setting and save the file in its current format.

Keys are the ones used in the settings file, for example default_method,
timeout or history_limit. Variables use variables.NAME and telemetry
fields use telemetry.endpoint, telemetry.insecure or telemetry.service_name.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, handle, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(settings, handle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], handle.Path)
			return nil
		},
	}
}
