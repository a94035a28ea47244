package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the pyreview configuration.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Intake      IntakeConfig      `json:"intake"`
	Analysis    AnalysisConfig    `json:"analysis"`
	Formatter   FormatterConfig   `json:"formatter"`
	Suggestions SuggestionsConfig `json:"suggestions"`
	Renderer    RendererConfig    `json:"renderer"`
	Reports     ReportsConfig     `json:"reports"`
	Cache       CacheConfig       `json:"cache"`
	Privacy     PrivacyConfig     `json:"privacy"`
	Format      string            `json:"format"`
	FailOn      string            `json:"failOn"`
	LogLevel    string            `json:"logLevel"`
	RulesFile   string            `json:"rulesFile,omitempty"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	Addr            string `json:"addr"`
	ShutdownSeconds int    `json:"shutdownSeconds"`
}

// IntakeConfig controls submission validation.
type IntakeConfig struct {
	MaxBytes int `json:"maxBytes"`
}

// AnalysisConfig controls the flake8/radon adapters and the built-in heuristics.
type AnalysisConfig struct {
	Flake8Path         string   `json:"flake8Path"`
	RadonPath          string   `json:"radonPath"`
	Ignore             []string `json:"ignore"`
	MaxLineLength      int      `json:"maxLineLength"`
	ComplexityModerate int      `json:"complexityModerate"`
	ComplexityHigh     int      `json:"complexityHigh"`
	TimeoutSeconds     int      `json:"timeoutSeconds"`
}

// FormatterConfig controls the black adapter.
type FormatterConfig struct {
	BlackPath      string `json:"blackPath"`
	LineLength     int    `json:"lineLength"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// SuggestionsConfig controls the AI suggestion client.
type SuggestionsConfig struct {
	Enabled        bool   `json:"enabled"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	BaseURL        string `json:"baseUrl,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	MaxTokens      int    `json:"maxTokens"`
}

// RendererConfig selects the PDF engine.
type RendererConfig struct {
	Engine          string `json:"engine"`
	WkhtmltopdfPath string `json:"wkhtmltopdfPath"`
	TimeoutSeconds  int    `json:"timeoutSeconds"`
}

// ReportsConfig bounds the in-memory store of recently generated reports.
type ReportsConfig struct {
	Capacity   int `json:"capacity"`
	TTLSeconds int `json:"ttlSeconds"`
}

// CacheConfig controls caching of AI responses on disk.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// PrivacyConfig controls redaction of source sent to the AI service.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths"`
}

// Timeout returns the suggestion call budget.
func (s SuggestionsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Timeout returns the per-tool subprocess budget.
func (a AnalysisConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Timeout returns the formatter subprocess budget.
func (f FormatterConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Timeout returns the PDF engine budget.
func (r RendererConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// TTL returns how long a generated report stays downloadable.
func (r ReportsConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownSeconds: 10,
		},
		Intake: IntakeConfig{
			MaxBytes: 256 * 1024,
		},
		Analysis: AnalysisConfig{
			Flake8Path:         "flake8",
			RadonPath:          "radon",
			Ignore:             []string{"E501"},
			MaxLineLength:      99,
			ComplexityModerate: 5,
			ComplexityHigh:     10,
			TimeoutSeconds:     30,
		},
		Formatter: FormatterConfig{
			BlackPath:      "black",
			LineLength:     88,
			TimeoutSeconds: 30,
		},
		Suggestions: SuggestionsConfig{
			Enabled:        true,
			Provider:       "openai",
			Model:          "gpt-4.1-mini",
			TimeoutSeconds: 20,
			MaxTokens:      2048,
		},
		Renderer: RendererConfig{
			Engine:          "fpdf",
			WkhtmltopdfPath: "wkhtmltopdf",
			TimeoutSeconds:  60,
		},
		Reports: ReportsConfig{
			Capacity:   128,
			TTLSeconds: 1800,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"*secret*.py", "*credentials*.py", "local_settings.py"},
		},
		Format:   "text",
		FailOn:   "none",
		LogLevel: "info",
	}
}

// ConfigDir returns the platform-appropriate config directory for pyreview.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyreview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "pyreview"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "pyreview"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "pyreview"), nil
	default:
		return filepath.Join(home, ".config", "pyreview"), nil
	}
}

// ConfigPath returns the full path to the config file. PYREVIEW_CONFIG wins
// over the platform directory.
func ConfigPath() (string, error) {
	if p := os.Getenv("PYREVIEW_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile returns the defaults overlaid with the config file. A missing file
// yields the defaults and no error.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	// Unmarshal onto the defaults so keys absent from the file keep their
	// default value, booleans included.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// A .env file in the working directory is loaded into the environment first;
// variables already set are not overwritten.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	_ = godotenv.Load()

	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys understood by SetField.
var envKeys = []struct {
	env string
	key string
}{
	{"PYREVIEW_ADDR", "addr"},
	{"PYREVIEW_MAX_BYTES", "maxBytes"},
	{"PYREVIEW_FLAKE8", "flake8Path"},
	{"PYREVIEW_RADON", "radonPath"},
	{"PYREVIEW_BLACK", "blackPath"},
	{"PYREVIEW_SUGGESTIONS", "suggestions"},
	{"PYREVIEW_PROVIDER", "provider"},
	{"PYREVIEW_MODEL", "model"},
	{"PYREVIEW_PROVIDER_URL", "baseUrl"},
	{"PYREVIEW_SUGGESTION_TIMEOUT", "suggestionTimeout"},
	{"PYREVIEW_PDF_ENGINE", "pdfEngine"},
	{"PYREVIEW_WKHTMLTOPDF", "wkhtmltopdfPath"},
	{"PYREVIEW_FORMAT", "format"},
	{"PYREVIEW_FAIL_ON", "failOn"},
	{"PYREVIEW_LOG_LEVEL", "logLevel"},
	{"PYREVIEW_RULES", "rulesFile"},
}

func mergeEnv(cfg *Config) error {
	// PORT is honoured for container platforms that only inject a port.
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		cfg.Server.Addr = v
	}
	for _, e := range envKeys {
		v := strings.TrimSpace(os.Getenv(e.env))
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "addr":
		cfg.Server.Addr = value
	case "maxBytes":
		return setInt(&cfg.Intake.MaxBytes, key, value)
	case "flake8Path":
		cfg.Analysis.Flake8Path = value
	case "radonPath":
		cfg.Analysis.RadonPath = value
	case "ignore":
		cfg.Analysis.Ignore = splitList(value)
	case "maxLineLength":
		return setInt(&cfg.Analysis.MaxLineLength, key, value)
	case "blackPath":
		cfg.Formatter.BlackPath = value
	case "lineLength":
		return setInt(&cfg.Formatter.LineLength, key, value)
	case "suggestions":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("suggestions must be a boolean: %w", err)
		}
		cfg.Suggestions.Enabled = b
	case "provider":
		cfg.Suggestions.Provider = value
	case "model":
		cfg.Suggestions.Model = value
	case "baseUrl":
		cfg.Suggestions.BaseURL = value
	case "suggestionTimeout":
		return setInt(&cfg.Suggestions.TimeoutSeconds, key, value)
	case "pdfEngine":
		cfg.Renderer.Engine = value
	case "wkhtmltopdfPath":
		cfg.Renderer.WkhtmltopdfPath = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "logLevel":
		cfg.LogLevel = value
	case "rulesFile":
		cfg.RulesFile = value
	case "cache":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	case "redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Validate rejects values the components cannot run with.
func (c Config) Validate() error {
	if c.Intake.MaxBytes <= 0 {
		return fmt.Errorf("intake.maxBytes must be positive, got %d", c.Intake.MaxBytes)
	}
	switch c.Renderer.Engine {
	case "fpdf", "wkhtmltopdf":
	default:
		return fmt.Errorf("unknown PDF engine: %s", c.Renderer.Engine)
	}
	switch c.FailOn {
	case "", "none", "info", "warning", "error":
	default:
		return fmt.Errorf("failOn must be one of none, info, warning, error; got %q", c.FailOn)
	}
	if c.Suggestions.Enabled && c.Suggestions.TimeoutSeconds <= 0 {
		return fmt.Errorf("suggestions.timeoutSeconds must be positive when suggestions are enabled")
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
