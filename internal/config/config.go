// Package config loads the application configuration from an optional config
// file and environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DockerTimeout  int    `mapstructure:"docker_timeout"` // seconds
	DataDir        string `mapstructure:"data_dir"`
	StaticDir      string `mapstructure:"static_dir"`
	IndexFile      string `mapstructure:"index_file"`
	IconsDir       string `mapstructure:"icons_dir"`
	DockerfilesDir string `mapstructure:"dockerfiles_dir"`
	Debug          bool   `mapstructure:"debug"`
}

// Load reads configuration from the given file (optional) and DOCKBOARD_*
// environment variables, on top of the defaults.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8088)
	v.SetDefault("docker_timeout", 30)
	v.SetDefault("data_dir", "data")
	v.SetDefault("static_dir", "static")
	v.SetDefault("index_file", "index.html")
	v.SetDefault("icons_dir", "icons")
	v.SetDefault("dockerfiles_dir", "dockerfiles")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("DOCKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Data file locations, all under DataDir.

func (c Config) GroupsFile() string           { return filepath.Join(c.DataDir, "groups.json") }
func (c Config) GroupAliasesFile() string     { return filepath.Join(c.DataDir, "group_aliases.json") }
func (c Config) ContainerAliasesFile() string { return filepath.Join(c.DataDir, "container_aliases.json") }
func (c Config) AutostartFile() string        { return filepath.Join(c.DataDir, "autostart.json") }
func (c Config) PinnedGroupsFile() string     { return filepath.Join(c.DataDir, "pinned_groups.json") }
