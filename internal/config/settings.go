package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/apipost/internal/core"
	"github.com/artpar/apipost/internal/telemetry"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned by Set for a key settings files do not have.
var ErrUnknownKey = errors.New("unknown settings key")

// EnvConfigDir overrides the settings directory.
const EnvConfigDir = "APIPOST_CONFIG_DIR"

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

const defaultHistoryLimit = 500

// Format is a settings file encoding.
type Format string

// Settings are the persisted composer defaults.
type Settings struct {
	DefaultMethod   string        `toml:"default_method"    yaml:"default_method"`
	DefaultBodyType core.BodyType `toml:"default_body_type" yaml:"default_body_type"`
	DefaultURL      string        `toml:"default_url"       yaml:"default_url"`
	Timeout         string        `toml:"timeout"           yaml:"timeout"`
	FollowRedirects bool          `toml:"follow_redirects"  yaml:"follow_redirects"`
	Cookies         bool          `toml:"cookies"           yaml:"cookies"`
	HistoryPath     string        `toml:"history_path"      yaml:"history_path"`
	HistoryLimit    int           `toml:"history_limit"     yaml:"history_limit"`

	// Variables fill {{name}} placeholders in the URL, headers and body.
	Variables map[string]string `toml:"variables,omitempty" yaml:"variables,omitempty"`
	Telemetry telemetry.Config  `toml:"telemetry"           yaml:"telemetry"`
}

// Handle records where settings were loaded from so Save writes them back
// in the same place and format.
type Handle struct {
	Path   string
	Format Format
}

// Default returns the settings used when no file exists: POST with a raw
// body, redirects followed, cookies kept.
func Default() Settings {
	return Settings{
		DefaultMethod:   "POST",
		DefaultBodyType: core.BodyRaw,
		FollowRedirects: true,
		Cookies:         true,
		HistoryLimit:    defaultHistoryLimit,
	}
}

// Dir returns the settings directory.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".apipost")
	}
	return filepath.Join(base, "apipost")
}

// Load reads settings.toml, then settings.yaml, from dir. A missing file
// moves on to the next format; a parse error fails immediately. With no
// file at all it returns Default and a TOML handle.
func Load(dir string) (Settings, Handle, error) {
	candidates := []Handle{
		{Path: filepath.Join(dir, "settings.toml"), Format: FormatTOML},
		{Path: filepath.Join(dir, "settings.yaml"), Format: FormatYAML},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(accumulated, fmt.Errorf("read settings %q: %w", candidate.Path, err))
			continue
		}

		settings, err := decode(data, candidate.Format)
		if err != nil {
			return Settings{}, Handle{}, fmt.Errorf("parse settings %q: %w", candidate.Path, err)
		}
		if err := settings.Validate(); err != nil {
			return Settings{}, Handle{}, fmt.Errorf("invalid settings %q: %w", candidate.Path, err)
		}
		return settings.normalise(), candidate, nil
	}

	if accumulated != nil {
		return Settings{}, Handle{}, accumulated
	}

	return Default(), candidates[0], nil
}

func decode(data []byte, format Format) (Settings, error) {
	// Keys absent from the file keep their defaults.
	settings := Default()
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return settings, nil
}

// Save writes settings to handle. An empty handle means settings.toml in Dir().
func Save(settings Settings, handle Handle) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings = settings.normalise()

	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), "settings.toml")
	}
	if format == "" {
		format = FormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure settings directory: %w", err)
	}

	data, err := Encode(settings, format)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}

// Encode renders settings in format.
func Encode(settings Settings, format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatTOML:
		data, err = toml.Marshal(settings)
	case FormatYAML:
		data, err = yaml.Marshal(settings)
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

// Set assigns one setting by its file key. Variables are addressed as
// "variables.NAME" and telemetry fields as "telemetry.FIELD". The result
// is validated.
func (s *Settings) Set(key, value string) error {
	next := *s
	switch {
	case key == "default_method":
		next.DefaultMethod = value
	case key == "default_body_type":
		t, err := core.ParseBodyType(value)
		if err != nil {
			return err
		}
		next.DefaultBodyType = t
	case key == "default_url":
		next.DefaultURL = value
	case key == "timeout":
		next.Timeout = value
	case key == "follow_redirects", key == "cookies", key == "telemetry.insecure":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "follow_redirects":
			next.FollowRedirects = b
		case "cookies":
			next.Cookies = b
		default:
			next.Telemetry.Insecure = b
		}
	case key == "history_path":
		next.HistoryPath = value
	case key == "history_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		next.HistoryLimit = n
	case key == "telemetry.endpoint":
		next.Telemetry.Endpoint = value
	case key == "telemetry.service_name":
		next.Telemetry.ServiceName = value
	case strings.HasPrefix(key, "variables.") && len(key) > len("variables."):
		vars := make(map[string]string, len(s.Variables)+1)
		for k, v := range s.Variables {
			vars[k] = v
		}
		vars[strings.TrimPrefix(key, "variables.")] = value
		next.Variables = vars
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*s = next.normalise()
	return nil
}

// Validate rejects settings that cannot be applied.
func (s Settings) Validate() error {
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeout: negative duration %q", s.Timeout)
		}
	}
	if s.DefaultURL != "" {
		if err := core.ValidateURL(s.DefaultURL); err != nil {
			return fmt.Errorf("default_url: %w", err)
		}
	}
	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit: negative value %d", s.HistoryLimit)
	}
	return nil
}

// TimeoutDuration returns the parsed timeout; zero means none.
func (s Settings) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// HistoryFile returns the history database path.
func (s Settings) HistoryFile(dir string) string {
	if s.HistoryPath != "" {
		return s.HistoryPath
	}
	return filepath.Join(dir, "history.db")
}

// CookieFile returns the cookie database path, next to the history.
func (s Settings) CookieFile(dir string) string {
	return filepath.Join(filepath.Dir(s.HistoryFile(dir)), "cookies.db")
}

func (s Settings) normalise() Settings {
	s.DefaultMethod = strings.ToUpper(strings.TrimSpace(s.DefaultMethod))
	if s.DefaultMethod == "" {
		s.DefaultMethod = Default().DefaultMethod
	}
	return s
}

// writeFileAtomic writes to a temp file and renames it over path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".apipost-settings-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
