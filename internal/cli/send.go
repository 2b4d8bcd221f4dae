package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/apipost/internal/app"
	"github.com/artpar/apipost/internal/config"
	"github.com/artpar/apipost/internal/core"
	"github.com/spf13/cobra"
)

// SendOptions holds options for the send command.
type SendOptions struct {
	Headers   []string
	Body      string
	BodyType  string
	Params    []string
	Files     []string
	Vars      []string
	JSON      bool
	Pretty    bool
	NoHistory bool
	Timeout   time.Duration
}

// NewSendCommand creates the send command.
func NewSendCommand() *cobra.Command {
	opts := &SendOptions{}

	cmd := &cobra.Command{
		Use:   "send [METHOD] URL",
		Short: "Send an HTTP request",
		Long: `Send a single request and print the response.

The method defaults to the configured default method. POST bodies come
from --data for raw types, or from --param and --file rows for json and
form-data. Other methods send --param rows as the query string.

Examples:
  apipost send GET https://httpbin.org/get -p q=search
  apipost send https://httpbin.org/post --type json -p name=test -p age=3
  apipost send POST https://httpbin.org/post --type xml -d '<a/>'
  apipost send POST https://httpbin.org/post -F file=./report.csv -p kind=csv
  apipost send '{{base}}/get' --var base=https://httpbin.org`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, url := "", args[0]
			if len(args) == 2 {
				method, url = args[0], args[1]
			}
			return runSend(cmd, method, url, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request header (format: Key: Value)")
	cmd.Flags().StringVarP(&opts.Body, "data", "d", "", "Raw request body")
	cmd.Flags().StringVarP(&opts.BodyType, "type", "t", "", "Body type: "+strings.Join(core.BodyTypeLabels(), ", "))
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Table row (format: key=value)")
	cmd.Flags().StringArrayVarP(&opts.Files, "file", "F", nil, "File row (format: key=path)")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "Placeholder value for {{name}} (format: name=value)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "Indent JSON response bodies")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the request in history")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Request timeout (default from settings)")

	return cmd
}

func runSend(cmd *cobra.Command, method, url string, opts *SendOptions) error {
	vars, err := parseVars(opts.Vars)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, globalsFrom(cmd), sessionOptions{
		history: !opts.NoHistory,
		adjust: func(settings *config.Settings) {
			if opts.Timeout > 0 {
				settings.Timeout = opts.Timeout.String()
			}
			settings.Variables = mergeVars(settings.Variables, vars)
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := applySendOptions(s.composer, method, url, opts); err != nil {
		return err
	}

	result, err := s.composer.Send(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result, opts.JSON, opts.Pretty)
}

func applySendOptions(c *app.Composer, method, url string, opts *SendOptions) error {
	if method != "" {
		c.SetMethod(method)
	}
	c.SetURL(url)
	c.SetHeaderText(strings.Join(opts.Headers, "\n"))

	body := c.Body()
	if opts.BodyType != "" {
		if err := body.SelectLabel(opts.BodyType); err != nil {
			return fmt.Errorf("--type %q: %w", opts.BodyType, err)
		}
	}
	body.SetRaw(opts.Body)

	rows, err := parseRows(opts.Params, false)
	if err != nil {
		return err
	}
	files, err := parseRows(opts.Files, true)
	if err != nil {
		return err
	}
	rows = append(rows, files...)
	if len(rows) == 0 {
		return nil
	}

	body.Table().Replace(rows)
	if opts.BodyType == "" && c.Method() == "POST" && opts.Body == "" {
		body.Select(core.BodyFormData)
	}
	return nil
}

func parseRows(values []string, isFile bool) ([]core.ParamRow, error) {
	rows := make([]core.ParamRow, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid row %q: expected key=value", v)
		}
		rows = append(rows, core.ParamRow{Key: key, Value: value, IsFile: isFile, IsEnable: true})
	}
	return rows, nil
}

func parseVars(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", v)
		}
		vars[name] = value
	}
	return vars, nil
}

// mergeVars overlays extra on base without mutating base.
func mergeVars(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

type resultOutput struct {
	RequestID  string `json:"request_id"`
	Status     int    `json:"status"`
	StatusInfo string `json:"status_info"`
	Headers    string `json:"headers"`
	Body       string `json:"body"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// printResult writes the result and returns its error for failed requests.
func printResult(out io.Writer, result core.Result, asJSON, pretty bool) error {
	data := result.Data
	if pretty {
		data = result.PrettyData()
	}

	if asJSON {
		output := resultOutput{
			RequestID:  result.RequestID,
			Status:     result.StatusCode,
			StatusInfo: result.StatusInfo,
			Headers:    result.HeaderInfo,
			Body:       data,
			DurationMS: result.Duration.Milliseconds(),
		}
		if result.Failed() {
			output.Error = result.StatusInfo
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return err
		}
		return result.Err
	}

	if result.Failed() {
		fmt.Fprintln(out, data)
		return result.Err
	}

	fmt.Fprintln(out, result.StatusInfo)
	fmt.Fprintf(out, "Time: %dms\n", result.Duration.Milliseconds())
	if result.HeaderInfo != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, result.HeaderInfo)
	}
	if data != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, data)
	}
	return nil
}
