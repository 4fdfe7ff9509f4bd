package cache

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the options the cache consumes from its configuration file.
type Config struct {
	// Enabled short-circuits every Get to a miss when false. The regions
	// are not touched or even mapped.
	Enabled bool
	// CacheLocation is the path to the data region file.
	CacheLocation string
	// CacheSize is the number of bytes to map for the data region.
	// Zero means the full file length.
	CacheSize int64
	// IndexLocation is the path to the index region file.
	IndexLocation string
	// IndexSize is the number of bytes to map for the index region.
	// Zero means the full file length.
	IndexSize int64
}

// LoadConfig reads a YAML configuration file. Options are addressed by
// their dotted names:
//
//	cache:
//	  enabled: true
//	  location: /dev/shm/columnlet.cache
//	  size: 1073741824
//	index:
//	  location: /dev/shm/columnlet.index
//	  size: 104857600
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("cache.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Config{
		Enabled:       v.GetBool("cache.enabled"),
		CacheLocation: v.GetString("cache.location"),
		CacheSize:     v.GetInt64("cache.size"),
		IndexLocation: v.GetString("index.location"),
		IndexSize:     v.GetInt64("index.size"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that an enabled configuration names both regions.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CacheLocation == "" {
		return fmt.Errorf("cache.location is required when the cache is enabled")
	}
	if c.IndexLocation == "" {
		return fmt.Errorf("index.location is required when the cache is enabled")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.CacheSize)
	}
	if c.IndexSize < 0 {
		return fmt.Errorf("index.size must not be negative, got %d", c.IndexSize)
	}
	return nil
}
