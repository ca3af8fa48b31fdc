package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultStateFile      = "servers.dump"
	DefaultRetentionDays  = 30
	DefaultOutputDir      = "out"
	DefaultHTMLPrefix     = "servers"
	DefaultHeaderEvery    = 10
	DefaultExportFilename = "servers.xml"
	DefaultExportFormat   = "xml"
	DefaultLogLevel       = "info"
	DefaultLogBackups     = 10
)

// DefaultColumns is the set of service kinds shown as report columns when the
// config does not list any. Pure MUC components are reported by the
// discoverer as conference/x-muc.
var DefaultColumns = []string{
	"conference/x-muc", "conference/irc",
	"gateway/gadu-gadu", "gateway/gtalk", "gateway/icq",
	"gateway/sms", "gateway/smtp", "gateway/xmpp",
	"gateway/twitter", "gateway/facebook", "gateway/whatsapp",
	"gateway/telegram", "gateway/skype",
	"directory/user", "pubsub/pep",
	"store/file",
	"headline/newmail",
	"proxy/bytestreams",
}

// Config is the top-level configuration.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Log     LogConfig     `yaml:"log"`
}

// ScannerConfig holds all pipeline settings.
type ScannerConfig struct {
	// StateFile is the history snapshot carried between runs.
	StateFile string `yaml:"state_file"`

	// RetentionDays is how long availability samples are kept.
	RetentionDays int `yaml:"retention_days"`

	// TargetsFile is an optional XML list of servers to scan in addition
	// to the ones listed by the feeds.
	TargetsFile string `yaml:"targets_file"`

	// Feeds are the server list documents to reconcile.
	Feeds []Feed `yaml:"feeds"`

	// DiscoveryResults is the JSON document written by the discoverer.
	DiscoveryResults string `yaml:"discovery_results"`

	// SoftwareOverrides is an optional INI file extending the built-in
	// server implementation table.
	SoftwareOverrides string `yaml:"software_overrides"`

	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
}

// Feed describes one server list document.
type Feed struct {
	// ID names the feed in logs. Must be unique.
	ID string `yaml:"id"`

	// Path is the local copy of the document.
	Path string `yaml:"path"`

	// Format is one of: xml | html | json. Defaults to xml.
	Format string `yaml:"format"`
}

// OutputConfig controls every artifact the run produces.
type OutputConfig struct {
	// Directory receives the HTML views and the export.
	Directory string `yaml:"directory"`

	HTML   HTMLConfig   `yaml:"html"`
	Export ExportConfig `yaml:"export"`

	// Compress writes a gzip companion next to every report artifact.
	Compress bool `yaml:"compress"`

	// MetricsTextfile, when set, receives a Prometheus textfile with
	// per-server gauges.
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// HTMLConfig controls the HTML report views.
type HTMLConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`

	// MinReliability excludes servers whose online ratio is at or below it.
	// Required when Enabled.
	MinReliability *float64 `yaml:"min_reliability"`

	// HeaderEvery repeats the column header every N rows.
	HeaderEvery int `yaml:"header_every"`

	// ShrinkNamesTo truncates long server names; 0 disables shrinking.
	ShrinkNamesTo int `yaml:"shrink_names_to"`

	// ImagesDir is scanned for icon assets. Defaults to <directory>/images.
	ImagesDir string `yaml:"images_dir"`

	// Columns lists the service kinds shown, as "category/type".
	Columns []string `yaml:"columns"`
}

// ExportConfig controls the machine-readable export.
type ExportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Filename string `yaml:"filename"`

	// Format is one of: xml | json.
	Format string `yaml:"format"`

	// MinReliability has the same meaning as for HTML. Required when Enabled.
	MinReliability *float64 `yaml:"min_reliability"`
}

// DatabaseConfig configures the optional SQLite export.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty disables the export.
	Path string `yaml:"path"`
}

// LogConfig controls process logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// File, when set, receives JSON log lines instead of stdout.
	File string `yaml:"file"`

	// Backups is how many rotated copies of File are kept. The file is
	// rotated once at startup; 0 appends to it instead.
	Backups int `yaml:"backups"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Retention returns the retention window as a duration.
func (s ScannerConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// ImagesDirectory returns the configured images directory or its default.
func (o OutputConfig) ImagesDirectory() string {
	if o.HTML.ImagesDir != "" {
		return o.HTML.ImagesDir
	}
	return filepath.Join(o.Directory, "images")
}

// ServiceKinds parses the configured columns.
func (h HTMLConfig) ServiceKinds() ([]types.ServiceKind, error) {
	out := make([]types.ServiceKind, 0, len(h.Columns))
	for _, c := range h.Columns {
		k, err := types.ParseServiceKind(c)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Threshold returns the configured minimum reliability, 0 when unset.
func Threshold(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(cfg.Scanner.Output.HTML.Columns) == 0 {
		cfg.Scanner.Output.HTML.Columns = append([]string(nil), DefaultColumns...)
	}
	for i := range cfg.Scanner.Feeds {
		if cfg.Scanner.Feeds[i].Format == "" {
			cfg.Scanner.Feeds[i].Format = "xml"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Scanner: ScannerConfig{
			StateFile:     DefaultStateFile,
			RetentionDays: DefaultRetentionDays,
			Output: OutputConfig{
				Directory: DefaultOutputDir,
				HTML: HTMLConfig{
					Prefix:      DefaultHTMLPrefix,
					HeaderEvery: DefaultHeaderEvery,
				},
				Export: ExportConfig{
					Filename: DefaultExportFilename,
					Format:   DefaultExportFormat,
				},
			},
		},
		Log: LogConfig{Level: DefaultLogLevel, Backups: DefaultLogBackups},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	sc := cfg.Scanner
	if sc.StateFile == "" {
		return fmt.Errorf("scanner.state_file is required")
	}
	if sc.RetentionDays <= 0 {
		return fmt.Errorf("scanner.retention_days must be positive")
	}
	if sc.DiscoveryResults == "" {
		return fmt.Errorf("scanner.discovery_results is required")
	}
	if len(sc.Feeds) == 0 && sc.TargetsFile == "" {
		return fmt.Errorf("scanner: configure feeds, targets_file, or both")
	}
	seen := make(map[string]bool, len(sc.Feeds))
	for i, f := range sc.Feeds {
		if f.ID == "" {
			return fmt.Errorf("feeds[%d]: id is required", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("feeds[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = true
		if f.Path == "" {
			return fmt.Errorf("feeds[%d] %q: path is required", i, f.ID)
		}
		switch f.Format {
		case "xml", "html", "json":
		default:
			return fmt.Errorf("feeds[%d] %q: unknown format %q", i, f.ID, f.Format)
		}
	}

	out := sc.Output
	if out.Directory == "" {
		return fmt.Errorf("scanner.output.directory is required")
	}
	if out.HTML.Enabled {
		if out.HTML.Prefix == "" {
			return fmt.Errorf("scanner.output.html.prefix is required")
		}
		if err := checkThreshold("scanner.output.html.min_reliability", out.HTML.MinReliability); err != nil {
			return err
		}
		if out.HTML.HeaderEvery <= 0 {
			return fmt.Errorf("scanner.output.html.header_every must be positive")
		}
		if out.HTML.ShrinkNamesTo < 0 || (out.HTML.ShrinkNamesTo > 0 && out.HTML.ShrinkNamesTo < 4) {
			return fmt.Errorf("scanner.output.html.shrink_names_to must be 0 or at least 4")
		}
		if _, err := out.HTML.ServiceKinds(); err != nil {
			return fmt.Errorf("scanner.output.html.columns: %w", err)
		}
	}
	if out.Export.Enabled {
		if out.Export.Filename == "" {
			return fmt.Errorf("scanner.output.export.filename is required")
		}
		switch out.Export.Format {
		case "xml", "json":
		default:
			return fmt.Errorf("scanner.output.export.format %q unknown: want xml|json", out.Export.Format)
		}
		if err := checkThreshold("scanner.output.export.min_reliability", out.Export.MinReliability); err != nil {
			return err
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	if cfg.Log.Backups < 0 {
		return fmt.Errorf("log.backups must be >= 0, got %d", cfg.Log.Backups)
	}
	return nil
}

func checkThreshold(name string, v *float64) error {
	if v == nil {
		return fmt.Errorf("%s is required", name)
	}
	if *v < 0 || *v >= 1 {
		return fmt.Errorf("%s %v is out of range [0, 1)", name, *v)
	}
	return nil
}
