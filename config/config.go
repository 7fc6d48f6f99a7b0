// Package config loads the driver settings file.
//
// The file is TOML:
//
//	[validator]
//	capabilities = ["default", "float64"]
//	mode = "accumulate"
//
//	[log]
//	level = "debug"
//	format = "json"
//
// Every key is optional; missing keys keep the values of Default.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pelletier/go-toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gogpu/shadercore"
	"github.com/gogpu/shadercore/ir"
)

// Mode names accepted by the validator.mode key.
const (
	ModeFailFast   = "fail_fast"
	ModeAccumulate = "accumulate"
)

// Log formats accepted by the log.format key.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the decoded settings file.
type Config struct {
	Validator Validator `toml:"validator"`
	Log       Log       `toml:"log"`
}

// Validator holds the [validator] table.
type Validator struct {
	Capabilities []string `toml:"capabilities,omitempty"`
	Mode         string   `toml:"mode,omitempty"`
}

// Log holds the [log] table.
type Log struct {
	Level  string `toml:"level,omitempty"`
	Format string `toml:"format,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Validator: Validator{
			Capabilities: []string{"default"},
			Mode:         ModeFailFast,
		},
		Log: Log{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// Load reads and checks the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a settings file over Default. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(bytes.NewReader(data)).Strict(true).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check reports the first invalid value.
func (c *Config) Check() error {
	if _, err := c.Validator.Caps(); err != nil {
		return err
	}
	if _, err := c.Validator.ValidationMode(); err != nil {
		return err
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Caps parses the capability names. An empty list means the default set.
func (v Validator) Caps() (ir.Capabilities, error) {
	if len(v.Capabilities) == 0 {
		return ir.CapabilitiesDefault, nil
	}
	caps, err := ir.ParseCapabilities(v.Capabilities...)
	if err != nil {
		return 0, fmt.Errorf("validator.capabilities: %w", err)
	}
	return caps, nil
}

// ValidationMode parses the mode name.
func (v Validator) ValidationMode() (ir.Mode, error) {
	switch strings.ToLower(v.Mode) {
	case "", ModeFailFast:
		return ir.ModeFailFast, nil
	case ModeAccumulate:
		return ir.ModeAccumulate, nil
	default:
		return 0, fmt.Errorf("validator.mode: unknown mode %q", v.Mode)
	}
}

// Options converts the validator settings for shadercore.Translate.
func (c *Config) Options(log logr.Logger) (shadercore.Options, error) {
	caps, err := c.Validator.Caps()
	if err != nil {
		return shadercore.Options{}, err
	}
	mode, err := c.Validator.ValidationMode()
	if err != nil {
		return shadercore.Options{}, err
	}
	return shadercore.Options{Capabilities: caps, Mode: mode, Logger: log}, nil
}

// ZapLevel parses the level name.
func (l Log) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Zap returns the zap configuration for these settings.
func (l Log) Zap() (zap.Config, error) {
	lvl, err := l.ZapLevel()
	if err != nil {
		return zap.Config{}, err
	}
	var zc zap.Config
	if l.Format == FormatJSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	return zc, nil
}
