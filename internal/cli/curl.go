package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/artpar/apipost/internal/exporter"
	"github.com/artpar/apipost/internal/importer"
	"github.com/spf13/cobra"
)

// CurlOptions holds the apipost flags accepted ahead of the curl arguments.
type CurlOptions struct {
	Clipboard bool
	Send      bool
	Export    bool
	Pretty    bool
	Copy      bool
	JSON      bool
	NoHistory bool
	globals   globals
}

// NewCurlCommand creates a command that imports a curl command.
func NewCurlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curl [flags] [curl arguments...]",
		Short: "Import a curl command",
		Long: `Parse a curl command and open it in the composer, send it, or
print it back as a normalized curl command.

The command is read from the arguments, from --clipboard, or from stdin
when there are no arguments. apipost flags must come before the curl
arguments:
  --clipboard   read the command from the clipboard
  --send        send the request and print the response
  --export      print the normalized curl command
  --pretty      with --export, one option per line; with --send, indent JSON
  --copy        with --export, also copy the command to the clipboard
  --json        with --send, print the result as JSON
  --no-history  with --send, do not record the request

Examples:
  apipost curl https://httpbin.org/get
  apipost curl --send -X POST https://httpbin.org/post -H "Content-Type: application/json" -d '{"name": "test"}'
  pbpaste | apipost curl --export --pretty`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, rest, err := parseCurlOptions(args, globalsFrom(cmd))
			if err != nil {
				return err
			}
			if opts == nil {
				return cmd.Help()
			}
			text, err := curlText(cmd.InOrStdin(), rest, opts.Clipboard)
			if err != nil {
				return err
			}
			return runCurl(cmd, text, opts)
		},
	}
	return cmd
}

// parseCurlOptions strips leading apipost flags. A nil result means help
// was requested.
func parseCurlOptions(args []string, g globals) (*CurlOptions, []string, error) {
	opts := &CurlOptions{globals: g}
	var rest []string

loop:
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			return nil, nil, nil
		case arg == "--clipboard":
			opts.Clipboard = true
		case arg == "--send":
			opts.Send = true
		case arg == "--export":
			opts.Export = true
		case arg == "--pretty":
			opts.Pretty = true
		case arg == "--copy":
			opts.Copy = true
		case arg == "--json":
			opts.JSON = true
		case arg == "--no-history":
			opts.NoHistory = true
		case arg == "--verbose":
			opts.globals.verbose = true
		case strings.HasPrefix(arg, "--config="):
			opts.globals.configDir = strings.TrimPrefix(arg, "--config=")
		case arg == "--config":
			if i+1 >= len(args) {
				return nil, nil, errors.New("--config needs a directory")
			}
			i++
			opts.globals.configDir = args[i]
		case arg == "--":
			rest = args[i+1:]
			break loop
		default:
			rest = args[i:]
			break loop
		}
	}

	if opts.Send && opts.Export {
		return nil, nil, errors.New("--send and --export cannot be combined")
	}
	return opts, rest, nil
}

// curlText assembles the command text. Arguments arrive already split by the
// shell, so each is quoted again before the importer re-tokenizes them.
func curlText(stdin io.Reader, args []string, fromClipboard bool) (string, error) {
	if fromClipboard {
		text, err := systemClipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}
		if _, err := importer.Detect(text); err != nil {
			return "", fmt.Errorf("clipboard: %w", err)
		}
		return text, nil
	}

	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("no curl arguments provided")
		}
		if _, err := importer.Detect(string(data)); err != nil {
			return "", fmt.Errorf("stdin: %w", err)
		}
		return string(data), nil
	}

	quoted := make([]string, 0, len(args)+1)
	if args[0] != "curl" {
		quoted = append(quoted, "curl")
	}
	for _, arg := range args {
		quoted = append(quoted, exporter.ShellQuote(arg))
	}
	return strings.Join(quoted, " "), nil
}

func runCurl(cmd *cobra.Command, text string, opts *CurlOptions) error {
	if opts.Export {
		parsed, err := importer.Parse(text)
		if err != nil {
			return fmt.Errorf("failed to parse curl command: %w", err)
		}
		exp := exporter.NewCurlExporter()
		exp.Pretty = opts.Pretty
		out, err := exp.Export(parsed.Descriptor())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		if opts.Copy {
			if err := systemClipboard.WriteAll(out); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
		}
		return nil
	}

	s, err := openSession(cmd, opts.globals, sessionOptions{history: !opts.NoHistory})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.composer.ImportCurl(text); err != nil {
		return fmt.Errorf("failed to parse curl command: %w", err)
	}

	if !opts.Send {
		return runTUI(s.composer)
	}

	result, err := s.composer.Send(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result, opts.JSON, opts.Pretty)
}
