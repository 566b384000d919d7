package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Device describes how to reach one ESPKey.
type Device struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
	WebUser string `toml:"web_user" validate:"required_with=WebPass"`
	WebPass string `toml:"web_pass" validate:"required_with=WebUser"`
}

// Config is the resolved tool configuration.
type Config struct {
	Devices       map[string]Device
	DefaultDevice string
	Timeout       time.Duration
	OutputDir     string
	LogLevel      string
	// Path is the config file that was read, empty when none existed.
	Path string
}

// Overrides are values supplied on the command line. Empty fields leave the
// loaded configuration untouched.
type Overrides struct {
	Device    string
	BaseURL   string
	WebUser   string
	WebPass   string
	Timeout   time.Duration
	OutputDir string
	LogLevel  string
}

const (
	defaultConfigPath = "~/.config/espkey/config.toml"
	defaultDeviceName = "default"
	defaultTimeout    = 15 * time.Second
	defaultOutputDir  = "."
	defaultLogLevel   = "info"

	envPrefix = "EKA_"
)

// Load resolves configuration from, in increasing precedence: defaults, the
// TOML file at path (or EKA_CONFIG_FILE, or the default path), EKA_*
// environment variables, and overrides.
func Load(path string, overrides Overrides) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(envPrefix + "CONFIG_FILE")
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Devices:   map[string]Device{},
		Timeout:   defaultTimeout,
		OutputDir: defaultOutputDir,
		LogLevel:  defaultLogLevel,
	}

	if err := loadFile(resolved, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyOverrides(&cfg, overrides)

	if cfg.DefaultDevice == "" && len(cfg.Devices) == 1 {
		for name := range cfg.Devices {
			cfg.DefaultDevice = name
		}
	}
	cfg.OutputDir = mustExpand(cfg.OutputDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		DefaultDevice string            `toml:"default_device"`
		Timeout       string            `toml:"timeout"`
		OutputDir     string            `toml:"output_dir"`
		LogLevel      string            `toml:"log_level"`
		Devices       map[string]Device `toml:"devices"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	cfg.Path = path
	for name, dev := range raw.Devices {
		cfg.Devices[name] = trimDevice(dev)
	}
	if v := strings.TrimSpace(raw.DefaultDevice); v != "" {
		cfg.DefaultDevice = v
	}
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse config: timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if v := strings.TrimSpace(raw.OutputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := getenv("DEVICE"); v != "" {
		cfg.DefaultDevice = v
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Timeout = d
	}
	if v := getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.patchDevice(getenv("BASE_URL"), getenv("WEB_USER"), getenv("WEB_PASS"))
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	if v := strings.TrimSpace(o.Device); v != "" {
		cfg.DefaultDevice = v
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if v := strings.TrimSpace(o.OutputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.patchDevice(strings.TrimSpace(o.BaseURL), strings.TrimSpace(o.WebUser), o.WebPass)
}

// patchDevice overlays connection values onto the default device, creating
// it when nothing is configured yet.
func (c *Config) patchDevice(baseURL, user, pass string) {
	if baseURL == "" && user == "" && pass == "" {
		return
	}
	name := c.DefaultDevice
	if name == "" && len(c.Devices) == 1 {
		for only := range c.Devices {
			name = only
		}
	}
	if name == "" {
		name = defaultDeviceName
	}
	c.DefaultDevice = name
	dev := c.Devices[name]
	if baseURL != "" {
		dev.BaseURL = normalizeURL(baseURL)
	}
	if user != "" {
		dev.WebUser = user
	}
	if pass != "" {
		dev.WebPass = pass
	}
	c.Devices[name] = dev
}

// Validate checks every configured device and the default selection.
func (c Config) Validate() error {
	v := validator.New()
	var errs []error
	for _, name := range c.DeviceNames() {
		if err := v.Struct(c.Devices[name]); err != nil {
			errs = append(errs, fmt.Errorf("device %q: %w", name, err))
		}
	}
	if c.DefaultDevice != "" && len(c.Devices) > 0 {
		if _, ok := c.Devices[c.DefaultDevice]; !ok {
			errs = append(errs, fmt.Errorf("default device %q is not configured", c.DefaultDevice))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Device returns the named device, or the default device when name is empty.
func (c Config) Device(name string) (string, Device, error) {
	if strings.TrimSpace(name) == "" {
		name = c.DefaultDevice
	}
	if name == "" {
		if len(c.Devices) == 0 {
			return "", Device{}, fmt.Errorf("no device configured: set base_url in %s, %sBASE_URL or --base-url", defaultConfigPath, envPrefix)
		}
		return "", Device{}, fmt.Errorf("several devices configured, pick one with --device: %s", strings.Join(c.DeviceNames(), ", "))
	}
	dev, ok := c.Devices[name]
	if !ok {
		return "", Device{}, fmt.Errorf("device %q is not configured", name)
	}
	return name, dev, nil
}

// DeviceNames lists configured devices in sorted order.
func (c Config) DeviceNames() []string {
	names := make([]string, 0, len(c.Devices))
	for name := range c.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeURL adds the http scheme to bare host[:port] values.
func normalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "http://" + trimmed
}

func trimDevice(d Device) Device {
	return Device{
		BaseURL: normalizeURL(d.BaseURL),
		WebUser: strings.TrimSpace(d.WebUser),
		WebPass: d.WebPass,
	}
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
