// Package config resolves settings from flags, the environment and an
// optional $HOME/.peerboard.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"PeerBoard/internal/session"
	"PeerBoard/internal/state"
)

const (
	NameKey           = "name"
	ColorKey          = "color"
	ListenKey         = "listen"
	AdvertiseKey      = "advertise"
	ResolveTimeoutKey = "resolve_timeout"
	ExportDirKey      = "export_dir"
	LogLevelKey       = "log_level"
	HeadlessKey       = "headless"

	envPrefix = "PEERBOARD"
	fileName  = ".peerboard"
)

type Config struct {
	Name           string
	Color          string
	Listen         string
	Advertise      bool
	ResolveTimeout time.Duration
	ExportDir      string
	LogLevel       zerolog.Level
	Headless       bool
}

// SetDefaults registers every key so that env lookups work even without flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(NameKey, defaultName())
	v.SetDefault(ColorKey, "")
	v.SetDefault(ListenKey, ":8888")
	v.SetDefault(AdvertiseKey, true)
	v.SetDefault(ResolveTimeoutKey, 3*time.Second)
	v.SetDefault(ExportDirKey, defaultExportDir())
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(HeadlessKey, false)
}

// ReadFile loads path, or the default file in the home directory when path
// is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(fileName)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load validates what v holds.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Name:           strings.TrimSpace(v.GetString(NameKey)),
		Color:          strings.TrimSpace(v.GetString(ColorKey)),
		Listen:         v.GetString(ListenKey),
		Advertise:      v.GetBool(AdvertiseKey),
		ResolveTimeout: v.GetDuration(ResolveTimeoutKey),
		ExportDir:      v.GetString(ExportDirKey),
		Headless:       v.GetBool(HeadlessKey),
	}
	name, err := state.CleanName(c.Name)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", NameKey, err)
	}
	c.Name = name
	if c.Color != "" {
		color, err := state.NormalizeColor(c.Color)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", ColorKey, err)
		}
		c.Color = color
	}
	if c.ResolveTimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %s", ResolveTimeoutKey, c.ResolveTimeout)
	}
	level, err := zerolog.ParseLevel(v.GetString(LogLevelKey))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", LogLevelKey, err)
	}
	c.LogLevel = level
	return c, nil
}

func (c Config) Session() session.Config {
	return session.Config{
		Name:           c.Name,
		Color:          c.Color,
		ListenAddr:     c.Listen,
		Advertise:      c.Advertise,
		ResolveTimeout: c.ResolveTimeout,
	}
}

func defaultName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return strings.SplitN(h, ".", 2)[0]
	}
	return "guest"
}

func defaultExportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "PeerBoard")
	}
	return "."
}
