package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvFeedURL           = "GCAL_SECRET_URL"
	EnvSlackToken        = "SLACK_TOKEN"
	EnvUser              = "CALSTATUS_USER"
	EnvExcludeOrganizers = "CALSTATUS_EXCLUDE_ORGANIZERS"
	EnvOutMarker         = "CALSTATUS_OUT_MARKER"
	EnvSchedule          = "CALSTATUS_SCHEDULE"
	EnvLogLevel          = "CALSTATUS_LOG_LEVEL"
)

const (
	defaultSchedule     = "*/30 * * * *"
	defaultDirective    = "jkstat"
	defaultLogLevel     = "info"
	defaultFetchTimeout = 15 * time.Second
)

// Config is the top-level application configuration.
type Config struct {
	// FeedURL is the private iCalendar address of the user's calendar.
	FeedURL string `yaml:"feed_url"`

	// SlackToken is a user token with users.profile:write.
	SlackToken string `yaml:"slack_token"`

	// User identifies the acting user among event attendees. Matched
	// case-insensitively against the attendee's display name or email.
	User string `yaml:"user"`

	// ExcludeOrganizers are regular expressions; events whose organizer
	// matches any of them never set a status (e.g. org-chart bots).
	ExcludeOrganizers []string `yaml:"exclude_organizers"`

	// OutMarker is a summary substring (e.g. "jk out") that maps to the
	// "Out and about" status. Empty disables the rule.
	OutMarker string `yaml:"out_marker"`

	// Directive is the description keyword for explicit overrides:
	//   <directive> <emoji> <text>
	Directive string `yaml:"directive"`

	// Schedule is a cron expression used when not running with -once.
	Schedule string `yaml:"schedule"`

	// CacheDir enables conditional feed requests backed by a disk cache.
	// Empty disables caching.
	CacheDir string `yaml:"cache_dir"`

	// FetchTimeout bounds the feed HTTP request.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExcludeOrganizers: []string{},
		Directive:         defaultDirective,
		Schedule:          defaultSchedule,
		FetchTimeout:      defaultFetchTimeout,
		LogLevel:          defaultLogLevel,
	}
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	c.FeedURL = strings.TrimSpace(c.FeedURL)
	c.User = strings.TrimSpace(c.User)
	if c.Directive == "" {
		c.Directive = defaultDirective
	}
	if c.Schedule == "" {
		c.Schedule = defaultSchedule
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ExcludeOrganizers == nil {
		c.ExcludeOrganizers = []string{}
	}
}

// Validate reports missing required settings. The Slack token is only
// required when requireToken is set (dry runs do not publish).
func (c *Config) Validate(requireToken bool) error {
	var missing []string
	if c.FeedURL == "" {
		missing = append(missing, "feed_url ("+EnvFeedURL+")")
	}
	if c.User == "" {
		missing = append(missing, "user ("+EnvUser+")")
	}
	if requireToken && c.SlackToken == "" {
		missing = append(missing, "slack_token ("+EnvSlackToken+")")
	}
	if len(missing) > 0 {
		return errors.New("missing config: " + strings.Join(missing, ", "))
	}
	return nil
}

// Load builds the configuration.
//
// Behavior:
//   - A .env file in the working directory, if present, is loaded into the
//     process environment (existing variables win).
//   - If path is empty, defaults are used.
//   - If path does not exist, defaults are used and written to path with
//     0600 perms.
//   - If path exists, the YAML is read over the defaults.
//   - Environment variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// First run: create default config file.
			if err := Save(path, cfg); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvFeedURL); ok && v != "" {
		c.FeedURL = v
	}
	if v, ok := lookup(EnvSlackToken); ok && v != "" {
		c.SlackToken = v
	}
	if v, ok := lookup(EnvUser); ok && v != "" {
		c.User = v
	}
	if v, ok := lookup(EnvExcludeOrganizers); ok && v != "" {
		c.ExcludeOrganizers = splitList(v)
	}
	if v, ok := lookup(EnvOutMarker); ok && v != "" {
		c.OutMarker = v
	}
	if v, ok := lookup(EnvSchedule); ok && v != "" {
		c.Schedule = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save writes cfg to path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Final file permissions are 0600 (the file may hold a token).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calstatus-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
