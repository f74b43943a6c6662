package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LoggingCfg struct {
	Level        string `mapstructure:"level"`
	ConsoleLevel string `mapstructure:"console_level"`
	DebugFile    string `mapstructure:"debug_file"`
	InfoFile     string `mapstructure:"info_file"`
	Development  bool   `mapstructure:"development"`
	RunLog       string `mapstructure:"run_log"`
}

// RelayCfg configures the relay queue and its sink.
type RelayCfg struct {
	// Destination is a scheme-prefixed descriptor: file://<path> or redis://<host>[:<port>][?list=<name>]
	Destination  string        `mapstructure:"destination"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
}

type IndexCfg struct {
	WarmupSeconds int `mapstructure:"warmup_seconds"`
}

type AdminCfg struct {
	Listen string `mapstructure:"listen"`
}

type InputCfg struct {
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file_path"`
	User     string `mapstructure:"user"`
	Address  string `mapstructure:"address"`
}

type OutputCfg struct {
	RejectFile string `mapstructure:"reject_file"`
}

type Config struct {
	Version string     `mapstructure:"version"`
	Relay   RelayCfg   `mapstructure:"relay"`
	Index   IndexCfg   `mapstructure:"index"`
	Admin   AdminCfg   `mapstructure:"admin"`
	Input   InputCfg   `mapstructure:"input"`
	Output  OutputCfg  `mapstructure:"output"`
	Logging LoggingCfg `mapstructure:"logging"`
}

// Warmup returns the configured stabilization window.
func (c *Config) Warmup() time.Duration {
	return time.Duration(c.Index.WarmupSeconds) * time.Second
}

var cfg *Config

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	v.SetEnvPrefix("BEHOLDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("version", "0.1")
	v.SetDefault("relay.destination", "file://beholdr.ndjson")
	v.SetDefault("relay.max_queue_size", 1024)
	v.SetDefault("relay.send_timeout", "5s")
	v.SetDefault("relay.retry_initial", "10ms")
	v.SetDefault("relay.retry_max", "5s")
	v.SetDefault("index.warmup_seconds", 300)
	v.SetDefault("admin.listen", "127.0.0.1:8089")
	v.SetDefault("input.format", "sql")
	v.SetDefault("logging.level", "info")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = &c
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Relay.MaxQueueSize <= 0 {
		return fmt.Errorf("relay.max_queue_size must be positive, got %d", c.Relay.MaxQueueSize)
	}
	if c.Index.WarmupSeconds < 0 {
		return fmt.Errorf("index.warmup_seconds must not be negative, got %d", c.Index.WarmupSeconds)
	}
	if c.Relay.SendTimeout < 0 {
		return fmt.Errorf("relay.send_timeout must not be negative, got %s", c.Relay.SendTimeout)
	}
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
