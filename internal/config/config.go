package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 11730
	DefaultDialTimeout = 5 * time.Second
)

// Client configures one device connection.
type Client struct {
	Host             string
	Port             int
	Debug            bool
	DialTimeout      time.Duration
	CheckCorrelation bool
	LogLevel         string
}

type fileConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	Debug            bool   `toml:"debug"`
	DialTimeout      string `toml:"dial_timeout"`
	CheckCorrelation bool   `toml:"check_correlation"`
	LogLevel         string `toml:"log_level"`
}

func Default() Client {
	return Client{
		Host:        DefaultHost,
		Port:        DefaultPort,
		DialTimeout: DefaultDialTimeout,
		LogLevel:    "info",
	}
}

func (c Client) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load overlays the keys defined in the TOML file at path onto Default.
func Load(path string) (Client, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Client{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return Client{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	if meta.IsDefined("check_correlation") {
		cfg.CheckCorrelation = raw.CheckCorrelation
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Client{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if err := Validate(cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func Validate(cfg Client) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("client config missing host")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("client config port out of range: %d", cfg.Port)
	}
	if cfg.DialTimeout < 0 {
		return fmt.Errorf("client config dial_timeout negative: %s", cfg.DialTimeout)
	}
	return nil
}
