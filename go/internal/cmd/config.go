package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcdev12/reaction/go/internal/reaction/events"
	"github.com/mcdev12/reaction/go/internal/reaction/scheduler"
	"github.com/mcdev12/reaction/go/internal/terminal"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the tester settings.
type Config struct {
	MinDelayMs int    `yaml:"min_delay_ms"`
	MaxDelayMs int    `yaml:"max_delay_ms"`
	QuitKey    string `yaml:"quit_key"`
	RespondKey string `yaml:"respond_key"`
	AnyKey     bool   `yaml:"any_key"`
	QueueSize  int    `yaml:"queue_size"`
	LogFile    string `yaml:"log_file"`
	LogLevel   string `yaml:"log_level"`
}

// NewConfigFromEnv reads REACTION_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		MinDelayMs: getEnvAsInt("REACTION_MIN_DELAY_MS", int(scheduler.DefaultMinDelay.Milliseconds())),
		MaxDelayMs: getEnvAsInt("REACTION_MAX_DELAY_MS", int(scheduler.DefaultMaxDelay.Milliseconds())),
		QuitKey:    getEnv("REACTION_QUIT_KEY", "q"),
		RespondKey: getEnv("REACTION_RESPOND_KEY", "space"),
		AnyKey:     getEnvAsBool("REACTION_ANY_KEY", true),
		QueueSize:  getEnvAsInt("REACTION_QUEUE_SIZE", events.DefaultQueueSize),
		LogFile:    getEnv("REACTION_LOG_FILE", ""),
		LogLevel:   getEnv("REACTION_LOG_LEVEL", "info"),
	}
}

// Validate checks the settings before anything touches the terminal
func (c Config) Validate() error {
	if c.MinDelayMs <= 0 {
		return fmt.Errorf("%w: min delay must be positive, got %dms", ErrInvalidConfig, c.MinDelayMs)
	}
	if c.MaxDelayMs < c.MinDelayMs {
		return fmt.Errorf("%w: max delay %dms is below min delay %dms", ErrInvalidConfig, c.MaxDelayMs, c.MinDelayMs)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue size must be at least 1, got %d", ErrInvalidConfig, c.QueueSize)
	}

	quit, err := parseKey(c.QuitKey)
	if err != nil {
		return fmt.Errorf("%w: quit key: %w", ErrInvalidConfig, err)
	}
	respond, err := parseKey(c.RespondKey)
	if err != nil {
		return fmt.Errorf("%w: respond key: %w", ErrInvalidConfig, err)
	}
	if quit == respond {
		return fmt.Errorf("%w: quit and respond keys are both %q", ErrInvalidConfig, quit)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// KeyMap returns the input key bindings. Call Validate first.
func (c Config) KeyMap() terminal.KeyMap {
	quit, _ := parseKey(c.QuitKey)
	respond, _ := parseKey(c.RespondKey)
	return terminal.KeyMap{Quit: quit, Respond: respond, AnyKey: c.AnyKey}
}

// Delays returns the randomized delay bounds
func (c Config) Delays() (time.Duration, time.Duration) {
	return time.Duration(c.MinDelayMs) * time.Millisecond, time.Duration(c.MaxDelayMs) * time.Millisecond
}

// YAML renders the effective configuration
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// parseKey accepts a single character or one of the names "space", "enter", "tab"
func parseKey(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "space":
		return ' ', nil
	case "enter":
		return '\r', nil
	case "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("key %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r < 0x20 || r == 0x7f {
		return 0, fmt.Errorf("key %q is a control character", s)
	}
	return r, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
