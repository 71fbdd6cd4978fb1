package brainio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/lookup"
)

const (
	// HomeEnv overrides the configured local cache directory.
	HomeEnv = "BRAINIO_HOME"

	// DefaultCacheMB is the default size of the verified-digest memo.
	DefaultCacheMB = 16
)

// Config is the TOML configuration of a Client.
type Config struct {
	Fetch   FetchConfig
	Cache   CacheConfig
	Logging core.LogConfig
	Catalog map[string]CatalogConfig
}

type FetchConfig struct {
	Home    string
	CacheMB int `toml:"cache_mb"`

	// Engine holds fetch engine settings; see fetch.Configure.
	Engine map[string]interface{}
}

// EngineConfig returns the [fetch.engine] settings.
func (c FetchConfig) EngineConfig() core.Config {
	ec := core.NewConfig()
	ec.SetAll(c.Engine)
	return ec
}

type CacheConfig struct {
	MaxAssemblies int `toml:"max_assemblies"`
}

type CatalogConfig struct {
	Path string
}

// DefaultHome returns $BRAINIO_HOME, or ~/.brainio.
func DefaultHome() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".brainio"
	}
	return filepath.Join(userHome, ".brainio")
}

// DefaultConfig returns a configuration using DefaultHome and the registered sources.
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{Home: DefaultHome(), CacheMB: DefaultCacheMB},
	}
}

// Some settings in the TOML can be given as relative paths.  They are converted
// in place, relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [fetch].home
	if c.Fetch.Home != "" {
		if c.Fetch.Home, err = core.ConvertToAbsolute(c.Fetch.Home, configDir); err != nil {
			return fmt.Errorf("error converting fetch home to absolute path: %v", err)
		}
	}

	// [logging].logfile
	if c.Logging.Logfile != "" {
		if c.Logging.Logfile, err = core.ConvertToAbsolute(c.Logging.Logfile, configDir); err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path: %v", err)
		}
	}

	// [catalog.foobar].path
	for name, cc := range c.Catalog {
		if cc.Path == "" {
			return fmt.Errorf("no path given for catalog %q", name)
		}
		absPath, err := core.ConvertToAbsolute(cc.Path, configDir)
		if err != nil {
			return fmt.Errorf("error converting catalog.%s.path to absolute path: %q", name, cc.Path)
		}
		c.Catalog[name] = CatalogConfig{Path: absPath}
	}
	return nil
}

// LoadConfig reads a TOML configuration.  Unset values take their defaults and
// $BRAINIO_HOME, when set, overrides [fetch].home.
func LoadConfig(filename string) (Config, error) {
	if filename == "" {
		return Config{}, fmt.Errorf("no TOML configuration file provided")
	}
	var c Config
	if _, err := toml.DecodeFile(filename, &c); err != nil {
		return Config{}, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return Config{}, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if home := os.Getenv(HomeEnv); home != "" || c.Fetch.Home == "" {
		c.Fetch.Home = DefaultHome()
	}
	if c.Fetch.CacheMB == 0 {
		c.Fetch.CacheMB = DefaultCacheMB
	}
	core.Debugf("Loaded configuration from %s: %+v\n", filename, c)
	return c, nil
}

// Sources returns a catalog source per configured catalog in name order, or the
// registered sources if none are configured.
func (c Config) Sources() []lookup.Source {
	if len(c.Catalog) == 0 {
		return lookup.RegisteredSources()
	}
	names := make([]string, 0, len(c.Catalog))
	for name := range c.Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	sources := make([]lookup.Source, len(names))
	for i, name := range names {
		sources[i] = lookup.CSVSource(name, c.Catalog[name].Path)
	}
	return sources
}
