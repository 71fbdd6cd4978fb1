package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
)

// Config is a map of keyword to arbitrary data to specify configurations via keyword.
// Keywords are case-insensitive.
type Config struct {
	values map[string]interface{}
}

func NewConfig() Config {
	return Config{make(map[string]interface{})}
}

// SetAll replaces all settings with the given map.
func (c *Config) SetAll(kv map[string]interface{}) {
	c.values = make(map[string]interface{}, len(kv))
	for k, v := range kv {
		c.values[strings.ToLower(k)] = v
	}
}

// GetAll returns a copy of all settings.
func (c Config) GetAll() map[string]interface{} {
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *Config) Set(key string, value interface{}) {
	if c.values == nil {
		c.values = make(map[string]interface{})
	}
	c.values[strings.ToLower(key)] = value
}

// Get returns a value and whether the key was set.
func (c Config) Get(key string) (interface{}, bool) {
	if c.values == nil {
		return nil, false
	}
	v, found := c.values[strings.ToLower(key)]
	return v, found
}

// GetString returns a string setting.  An error is returned if the value
// is present but not a string.
func (c Config) GetString(key string) (s string, found bool, err error) {
	v, found := c.Get(key)
	if !found || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("%q setting must be a string (%v)", key, v)
	}
	return s, true, nil
}

// GetBool returns a bool setting, accepting "true"/"false" strings.
func (c Config) GetBool(key string) (b bool, found bool, err error) {
	v, found := c.Get(key)
	if !found || v == nil {
		return false, false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, true, nil
	case string:
		switch strings.ToLower(t) {
		case "true":
			return true, true, nil
		case "false":
			return false, true, nil
		}
	}
	return false, true, fmt.Errorf("%q setting must be a bool (%v)", key, v)
}

// GetInt returns an integer setting.  TOML decodes integers as int64.
func (c Config) GetInt(key string) (i int, found bool, err error) {
	v, found := c.Get(key)
	if !found || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case int:
		return t, true, nil
	case int64:
		return int(t), true, nil
	case float64:
		return int(t), true, nil
	}
	return 0, true, fmt.Errorf("%q setting must be an integer (%v)", key, v)
}

// ConvertToAbsolute returns an absolute path for the given path, resolving relative
// paths against baseDir.  A leading "~/" is expanded to the user's home directory.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(filepath.Join(baseDir, path))
}
