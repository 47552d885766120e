package appcache

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from humane YAML strings
// such as "90s", "5m" or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	dur, err := str2duration.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "appcache: invalid duration %q", raw)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config sizes the façade's two caches and assigns per-category TTLs.
type Config struct {
	AutocompleteTTL Duration `yaml:"autocomplete_ttl"`
	StatisticsTTL   Duration `yaml:"statistics_ttl"`
	SearchTTL       Duration `yaml:"search_ttl"`
	ProcessTTL      Duration `yaml:"process_ttl"`

	MaxEntries     int   `yaml:"max_entries"`
	MaxMemoryBytes int64 `yaml:"max_memory_bytes"`

	QueryMaxEntries     int   `yaml:"query_max_entries"`
	QueryMaxMemoryBytes int64 `yaml:"query_max_memory_bytes"`

	CleanupInterval Duration `yaml:"cleanup_interval"`

	// ProcessesTable and RemindersTable are the query-cache tables
	// invalidated alongside their categories.
	ProcessesTable string `yaml:"processes_table"`
	RemindersTable string `yaml:"reminders_table"`
}

// DefaultConfig returns the stock façade configuration.
func DefaultConfig() Config {
	return Config{
		AutocompleteTTL:     Duration(5 * time.Minute),
		StatisticsTTL:       Duration(10 * time.Minute),
		SearchTTL:           Duration(3 * time.Minute),
		ProcessTTL:          Duration(15 * time.Minute),
		MaxEntries:          1000,
		MaxMemoryBytes:      50 * 1024 * 1024,
		QueryMaxEntries:     500,
		QueryMaxMemoryBytes: 20 * 1024 * 1024,
		CleanupInterval:     Duration(2 * time.Minute),
		ProcessesTable:      "processos",
		RemindersTable:      "lembretes",
	}
}

// Validate rejects configurations the façade cannot operate with.
func (c Config) Validate() error {
	if c.MaxEntries <= 0 {
		return errors.Newf("appcache: max_entries must be > 0, got %d", c.MaxEntries)
	}
	if c.MaxMemoryBytes <= 0 {
		return errors.Newf("appcache: max_memory_bytes must be > 0, got %d", c.MaxMemoryBytes)
	}
	if c.QueryMaxEntries <= 0 {
		return errors.Newf("appcache: query_max_entries must be > 0, got %d", c.QueryMaxEntries)
	}
	if c.QueryMaxMemoryBytes <= 0 {
		return errors.Newf("appcache: query_max_memory_bytes must be > 0, got %d", c.QueryMaxMemoryBytes)
	}
	for _, ttl := range []Duration{c.AutocompleteTTL, c.StatisticsTTL, c.SearchTTL, c.ProcessTTL} {
		if ttl < 0 {
			return errors.New("appcache: category TTLs must be >= 0")
		}
	}
	return nil
}

// LoadConfig reads a YAML config file, overlaying it on DefaultConfig so a
// partial file only overrides what it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "appcache: reading config %s", path)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "appcache: parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
