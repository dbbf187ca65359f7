package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const configEnv = "AEMETTRACK"

// weekdays recognized by the work-day gate, plus "All".
var weekdays = map[string]time.Weekday{
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sunday":    time.Sunday,
}

// Config is the tracker's setup. It is loaded once and passed by value
// into the entry points; nothing in the core reads ambient state.
type Config struct {
	Station struct {
		ID   string `fig:"id" validate:"required"`
		Name string `fig:"name"`
	} `fig:"station"`

	History struct {
		// FirstYear..LastYear bound a full rebuild, inclusive. A zero
		// LastYear means the most recently completed year.
		FirstYear int `fig:"first_year" validate:"required"`
		LastYear  int `fig:"last_year"`
	} `fig:"history"`

	// WorkDay gates execution: a run only proceeds on this weekday, or
	// on any day when set to "All".
	WorkDay string `fig:"work_day" default:"All"`

	// Staleness is how old the last successful run may be before a new
	// refresh is due.
	Staleness time.Duration `fig:"staleness" default:"144h"`

	// Pace is the minimum interval between remote archive requests.
	Pace time.Duration `fig:"pace" default:"1s"`

	// Storage selects the persistence backend: file, s3 or memory.
	Storage string `fig:"storage" default:"file"`
	DataDir string `fig:"data_dir" default:"data"`

	Server struct {
		Listen          string        `fig:"listen" default:":8080"`
		RefreshInterval time.Duration `fig:"refresh_interval" default:"24h"`
	} `fig:"server"`

	LogLevel slog.Level `fig:"loglevel" default:"0"`
}

// Load reads the configuration from the given file, with AEMETTRACK_*
// environment variables taking precedence.
func Load(path string) (*Config, error) {
	conf := new(Config)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	err := fig.Load(conf,
		fig.Dirs(filepath.Dir(path)),
		fig.File(filepath.Base(path)),
		fig.UseEnv(configEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return conf, conf.Validate()
}

// Validate enforces the field constraints fig's tags cannot express.
func (c *Config) Validate() error {
	if c.History.FirstYear < 1900 {
		return fmt.Errorf("invalid first year: %d", c.History.FirstYear)
	}
	if c.History.LastYear != 0 && c.History.LastYear < c.History.FirstYear {
		return fmt.Errorf("last year %d precedes first year %d", c.History.LastYear, c.History.FirstYear)
	}
	if _, ok := weekdays[c.WorkDay]; !ok && c.WorkDay != "All" {
		return fmt.Errorf("invalid work day: %s", c.WorkDay)
	}
	switch c.Storage {
	case "file", "s3", "memory":
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage)
	}
	return nil
}

// RunsOn reports whether a run may execute at the given time according
// to the work-day gate.
func (c *Config) RunsOn(now time.Time) bool {
	if c.WorkDay == "All" {
		return true
	}
	return weekdays[c.WorkDay] == now.Weekday()
}

// APIKey returns the archive API key from the environment. The key is a
// secret and never lives in the setup file.
func APIKey() (string, error) {
	key := os.Getenv("AEMET_API_KEY")
	if key == "" {
		return "", fmt.Errorf("AEMET_API_KEY environment variable is not set")
	}
	return key, nil
}
