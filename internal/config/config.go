// Package config loads the datarail TOML configuration and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/objectstore"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "datarail.toml"

// DefaultLogFile is the SendFreight run log, created next to the executable.
const DefaultLogFile = "datarail_sendfreight.log"

// Config is the full tool configuration.
type Config struct {
	Source   Workspace   `toml:"source"`
	Target   Workspace   `toml:"target"`
	Email    Email       `toml:"email"`
	Log      Log         `toml:"log"`
	Load     LoadOptions `toml:"load"`
	Archive  Archive     `toml:"archive"`
	Temporal Temporal    `toml:"temporal"`
	Worker   Worker      `toml:"worker"`
}

// Workspace selects a geodatabase.
type Workspace struct {
	Kind    string             `toml:"kind"`
	Path    string             `toml:"path"`
	URL     string             `toml:"url"`
	Rasters objectstore.Config `toml:"rasters"`
}

// Email configures the run report.
type Email struct {
	Server   string   `toml:"server"`
	Port     int      `toml:"port"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	TLS      bool     `toml:"tls"`
}

// Enabled reports whether reports are emailed.
func (e Email) Enabled() bool { return e.Server != "" }

// Log configures console and run-log output.
type Log struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

// LoadOptions tunes row loading.
type LoadOptions struct {
	BatchSize     int     `toml:"batch_size"`
	RowsPerSecond float64 `toml:"rows_per_second"`
}

// Archive configures Parquet snapshots of shipped objects.
type Archive struct {
	Enabled bool               `toml:"enabled"`
	Store   objectstore.Config `toml:"store"`
}

// Temporal configures scheduled runs.
type Temporal struct {
	Host       string `toml:"host"`
	Namespace  string `toml:"namespace"`
	TaskQueue  string `toml:"task_queue"`
	WorkflowID string `toml:"workflow_id"`
	Cron       string `toml:"cron"`
}

// Worker configures the datarail-worker process.
type Worker struct {
	HealthAddr string `toml:"health_addr"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Email: Email{Port: 25},
		Log:   Log{Level: "info", Console: true},
		Load:  LoadOptions{BatchSize: 1000},
		Archive: Archive{Store: objectstore.Config{
			Bucket: "datarail-archive",
			Prefix: "snapshots",
		}},
		Temporal: Temporal{
			Host:       "localhost:7233",
			Namespace:  "default",
			TaskQueue:  "datarail",
			WorkflowID: "datarail-send-freight",
		},
		Worker: Worker{HealthAddr: ":7240"},
	}
}

// Load reads path over the defaults, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("load config: unknown keys %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("log", "file") {
		cfg.Log.File = defaultLogFile()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings and secrets from DATARAIL_* variables.
func (c *Config) ApplyEnv() {
	c.Source.Path = getEnv("DATARAIL_SOURCE_PATH", c.Source.Path)
	c.Source.URL = getEnv("DATARAIL_SOURCE_URL", c.Source.URL)
	c.Target.Path = getEnv("DATARAIL_TARGET_PATH", c.Target.Path)
	c.Target.URL = getEnv("DATARAIL_TARGET_URL", c.Target.URL)

	c.Email.Server = getEnv("DATARAIL_EMAIL_SERVER", c.Email.Server)
	c.Email.Port = getEnvInt("DATARAIL_EMAIL_PORT", c.Email.Port)
	c.Email.Username = getEnv("DATARAIL_EMAIL_USERNAME", c.Email.Username)
	c.Email.Password = getEnv("DATARAIL_EMAIL_PASSWORD", c.Email.Password)

	c.Log.Level = getEnv("DATARAIL_LOG_LEVEL", c.Log.Level)
	c.Load.BatchSize = getEnvInt("DATARAIL_LOAD_BATCH_SIZE", c.Load.BatchSize)

	for _, store := range []*objectstore.Config{&c.Source.Rasters, &c.Target.Rasters, &c.Archive.Store} {
		store.AccessKey = getEnv("DATARAIL_MINIO_ACCESS_KEY", store.AccessKey)
		store.SecretKey = getEnv("DATARAIL_MINIO_SECRET_KEY", store.SecretKey)
	}

	c.Temporal.Host = getEnv("DATARAIL_TEMPORAL_HOST", c.Temporal.Host)
	c.Temporal.Namespace = getEnv("DATARAIL_TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = getEnv("DATARAIL_TEMPORAL_TASK_QUEUE", c.Temporal.TaskQueue)
	c.Worker.HealthAddr = getEnv("DATARAIL_WORKER_HEALTH_ADDR", c.Worker.HealthAddr)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Source.validate("source"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Target.validate("target"); err != nil {
		errs = append(errs, err)
	}
	if c.Load.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("load.batch_size must be positive, got %d", c.Load.BatchSize))
	}
	if c.Load.RowsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("load.rows_per_second must not be negative"))
	}
	if c.Email.Enabled() {
		if c.Email.From == "" || len(c.Email.To) == 0 {
			errs = append(errs, errors.New("email.from and email.to are required when email.server is set"))
		}
	}
	if c.Archive.Enabled && !c.Archive.Store.Enabled() {
		errs = append(errs, errors.New("archive.store.endpoint is required when archive.enabled is true"))
	}
	return errors.Join(errs...)
}

func (w Workspace) validate(section string) error {
	switch strings.ToLower(w.Kind) {
	case "":
		return fmt.Errorf("%s.kind is required", section)
	case "fgdb":
		if w.Path == "" {
			return fmt.Errorf("%s.path is required for a file geodatabase", section)
		}
	case "postgres":
		if w.URL == "" {
			return fmt.Errorf("%s.url is required for a postgres geodatabase", section)
		}
	default:
		return fmt.Errorf("%s.kind %q is not a known workspace kind", section, w.Kind)
	}
	return nil
}

// GDB returns the workspace config. blobs backs raster storage, may be nil.
func (w Workspace) GDB(blobs gdb.BlobStore) gdb.Config {
	return gdb.Config{
		Kind:       w.Kind,
		Path:       w.Path,
		URL:        w.URL,
		Blobs:      blobs,
		BlobBucket: w.Rasters.Bucket,
		BlobPrefix: w.Rasters.Prefix,
	}
}

// Describe returns a location safe to log (no credentials).
func (w Workspace) Describe() string {
	if w.Path != "" {
		return w.Kind + ":" + w.Path
	}
	if i := strings.LastIndex(w.URL, "@"); i != -1 {
		return w.Kind + "://" + w.URL[i+1:]
	}
	return w.Kind
}

func defaultLogFile() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultLogFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultLogFile)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
