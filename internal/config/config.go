// Package config holds the settings that control parsing, formatting, and
// caching for the parselet command. Settings are read from a TOML file and
// can be overridden by PARSELET_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/parselet/internal/cache"
	"github.com/dekarrin/parselet/internal/cache/fsstore"
	"github.com/dekarrin/parselet/internal/cache/inmem"
	"github.com/dekarrin/parselet/internal/cache/sqlite"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// EnvPrefix is the prefix of environment variables that override config
// values.
const EnvPrefix = "PARSELET"

// DefaultFile is the name of the config file looked for in the working
// directory when no file is given.
const DefaultFile = "parselet.toml"

// CacheType is the type of a parse cache store.
type CacheType string

func (ct CacheType) String() string {
	return string(ct)
}

const (
	CacheNone       CacheType = "none"
	CacheSQLite     CacheType = "sqlite"
	CacheInMemory   CacheType = "inmem"
	CacheFilesystem CacheType = "fs"
)

const (
	MinWrapWidth = 20
	MaxMaxErrors = 100
)

// ParseCacheType parses a string found in a connection string into a
// CacheType.
func ParseCacheType(s string) (CacheType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case CacheSQLite.String():
		return CacheSQLite, nil
	case CacheInMemory.String():
		return CacheInMemory, nil
	case CacheFilesystem.String():
		return CacheFilesystem, nil
	default:
		return CacheNone, fmt.Errorf("cache type not one of 'sqlite', 'fs', or 'inmem': %q", s)
	}
}

// Cache contains configuration settings for connecting to a parse cache.
type Cache struct {
	// Type is the type of store the config refers to. It also determines
	// which of its other fields are valid.
	Type CacheType

	// Dir is the path to a directory to keep cache data in. This is only
	// applicable for certain cache types: SQLite and fs.
	Dir string
}

// Connect performs all logic needed to open the configured cache store. fs is
// used by filesystem stores; SQLite stores always use the OS filesystem.
func (c Cache) Connect(fs afero.Fs, log logrus.FieldLogger) (cache.Store, error) {
	switch c.Type {
	case CacheInMemory:
		return inmem.NewStore(log), nil
	case CacheSQLite:
		err := os.MkdirAll(c.Dir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}

		store, err := sqlite.NewStore(filepath.Join(c.Dir, "cache.db"), log)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}

		return store, nil
	case CacheFilesystem:
		store, err := fsstore.NewStore(fs, c.Dir, log)
		if err != nil {
			return nil, fmt.Errorf("initialize fs cache: %w", err)
		}
		return store, nil
	case CacheNone:
		return nil, fmt.Errorf("cannot connect to 'none' cache")
	default:
		return nil, fmt.Errorf("unknown cache type: %q", c.Type.String())
	}
}

// Validate returns an error if the Cache does not have the correct fields
// set.
func (c Cache) Validate() error {
	switch c.Type {
	case CacheInMemory:
		return nil
	case CacheSQLite, CacheFilesystem:
		if c.Dir == "" {
			return fmt.Errorf("Dir not set to path")
		}
		return nil
	case CacheNone:
		return fmt.Errorf("'none' cache is not valid")
	default:
		return fmt.Errorf("unknown cache type: %q", c.Type.String())
	}
}

func (c Cache) String() string {
	if c.Dir == "" {
		return c.Type.String()
	}
	return c.Type.String() + ":" + c.Dir
}

// ParseCacheConnString parses a cache connection string of the form
// "engine:params" (or just "engine" if no other params are required) into a
// valid Cache config object. For example, "sqlite:/data" gives a SQLite store
// kept in the given dir, "fs:.cache" gives one file per entry under .cache, and
// "inmem" gives a store that lasts only as long as the process.
func ParseCacheConnString(s string) (Cache, error) {
	var paramStr string
	parts := strings.SplitN(s, ":", 2)

	if len(parts) == 2 {
		paramStr = strings.TrimSpace(parts[1])
	}

	eng, err := ParseCacheType(strings.TrimSpace(parts[0]))
	if err != nil {
		return Cache{}, fmt.Errorf("unsupported cache engine: %w", err)
	}

	switch eng {
	case CacheInMemory:
		if paramStr != "" {
			return Cache{}, fmt.Errorf("unsupported param(s) for in-memory cache engine: %s", paramStr)
		}

		return Cache{Type: CacheInMemory}, nil
	case CacheSQLite, CacheFilesystem:
		if paramStr == "" {
			return Cache{}, fmt.Errorf("%s cache engine requires path to data directory after ':'", eng)
		}

		return Cache{Type: eng, Dir: paramStr}, nil
	default:
		return Cache{}, fmt.Errorf("unknown cache engine: %q", eng.String())
	}
}

// Config is the full set of settings for a run of the parselet command.
type Config struct {
	// Indent is the text used for one level of indentation when printing.
	// Defaults to four spaces.
	Indent string `toml:"indent" envconfig:"INDENT"`

	// PartialValues makes failed parses report the tree built up to the
	// failure.
	PartialValues bool `toml:"partial_values" envconfig:"PARTIAL_VALUES"`

	// MaxErrors is how many equally good syntax errors are folded into one
	// report. Defaults to 8.
	MaxErrors int `toml:"max_errors" envconfig:"MAX_ERRORS"`

	// CacheConn is the cache connection string, as accepted by
	// ParseCacheConnString. Defaults to "inmem".
	CacheConn string `toml:"cache" envconfig:"CACHE"`

	// Compress makes cache entries store zstd-compressed payloads.
	Compress bool `toml:"compress" envconfig:"COMPRESS"`

	// LogLevel is the name of the lowest logrus level that is logged.
	// Defaults to "warning".
	LogLevel string `toml:"log_level" envconfig:"LOG_LEVEL"`

	// WrapWidth is the width that long messages and tables are wrapped to.
	// Defaults to 80.
	WrapWidth int `toml:"wrap_width" envconfig:"WRAP_WIDTH"`
}

// Load reads the config at path on fs and then applies environment
// overrides. A missing file is not an error if path is DefaultFile. The
// returned Config has not had defaults filled or been validated.
func Load(fs afero.Fs, path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultFile
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if !os.IsNotExist(err) || path != DefaultFile {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return cfg, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	return cfg, nil
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Indent == "" {
		newCFG.Indent = "    "
	}
	if newCFG.MaxErrors == 0 {
		newCFG.MaxErrors = 8
	}
	if newCFG.CacheConn == "" {
		newCFG.CacheConn = CacheInMemory.String()
	}
	if newCFG.LogLevel == "" {
		newCFG.LogLevel = logrus.WarnLevel.String()
	}
	if newCFG.WrapWidth == 0 {
		newCFG.WrapWidth = 80
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if cfg.Indent == "" {
		return fmt.Errorf("indent: must not be empty")
	}
	if strings.TrimLeft(cfg.Indent, " \t") != "" {
		return fmt.Errorf("indent: must be only spaces and tabs")
	}
	if cfg.MaxErrors < 1 || cfg.MaxErrors > MaxMaxErrors {
		return fmt.Errorf("max_errors: must be between 1 and %d, but is %d", MaxMaxErrors, cfg.MaxErrors)
	}
	if cfg.WrapWidth < MinWrapWidth {
		return fmt.Errorf("wrap_width: must be at least %d, but is %d", MinWrapWidth, cfg.WrapWidth)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	c, err := ParseCacheConnString(cfg.CacheConn)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	return nil
}

// Cache returns the parsed cache connection settings. It returns a zero
// Cache if CacheConn is invalid; call Validate first to check it.
func (cfg Config) Cache() Cache {
	c, _ := ParseCacheConnString(cfg.CacheConn)
	return c
}

// Level returns the configured log level, or logrus.WarnLevel if it is
// invalid.
func (cfg Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}
