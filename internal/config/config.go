package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPersona       = "ඔබ ශ්‍රී ලාංකීය AI උපකාරකයෙකි. සිංහල, Singlish හෝ ඉංග්‍රීසි භාවිතා කරන්න."
	DefaultFallbackReply = "සමාවෙන්න, දැන් පිළිතුරක් නෑ. පසුව උත්සාහ කරන්න."
	DefaultPollinations  = "https://api.pollinations.ai/openai"
)

// DefaultPollinationsModels is the default provider order, fastest first.
var DefaultPollinationsModels = []string{"openai-fast", "openai", "mistral", "searchgpt"}

// Config contains all runtime settings for the chat relay.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	AllowedOrigins []string

	LogLevel   string
	LogFile    string
	TracesFile string

	DatabaseURL  string
	HistoryLimit int

	Persona       string
	FallbackReply string

	ProvidersFile      string
	PollinationsURL    string
	PollinationsModels []string
	ProviderTimeout    time.Duration

	// Providers is the resolved chain in priority order, secrets filled in.
	Providers []ProviderConfig
}

// Load reads environment variables, the optional providers file, and applies
// safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "lankachat"),
		AllowAnyOrigin:     true,
		AllowedOrigins:     listFromEnv("APP_ALLOWED_ORIGINS"),
		LogLevel:           envOrDefault("APP_LOG_LEVEL", "info"),
		LogFile:            stringsTrimSpace("APP_LOG_FILE"),
		TracesFile:         stringsTrimSpace("APP_TRACES_FILE"),
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		HistoryLimit:       10,
		Persona:            os.Getenv("CHAT_PERSONA"),
		FallbackReply:      os.Getenv("CHAT_FALLBACK_REPLY"),
		ProvidersFile:      stringsTrimSpace("CHAT_PROVIDERS_FILE"),
		PollinationsURL:    envOrDefault("POLLINATIONS_URL", DefaultPollinations),
		PollinationsModels: listFromEnv("POLLINATIONS_MODELS"),
		ShutdownTimeout:    15 * time.Second,
		ProviderTimeout:    18 * time.Second,
	}
	if len(cfg.PollinationsModels) == 0 {
		cfg.PollinationsModels = append([]string(nil), DefaultPollinationsModels...)
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderTimeout, err = durationFromEnv("CHAT_PROVIDER_TIMEOUT", cfg.ProviderTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("CHAT_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("CHAT_HISTORY_LIMIT must be positive")
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("CHAT_PROVIDER_TIMEOUT must be positive")
	}
	if !cfg.AllowAnyOrigin && len(cfg.AllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("APP_ALLOWED_ORIGINS is required when APP_ALLOW_ANY_ORIGIN is false")
	}

	var file ProvidersFile
	if cfg.ProvidersFile != "" {
		file, err = LoadProvidersFile(cfg.ProvidersFile)
		if err != nil {
			return Config{}, err
		}
	}
	if strings.TrimSpace(cfg.Persona) == "" {
		cfg.Persona = firstNonEmpty(file.Persona, DefaultPersona)
	}
	if strings.TrimSpace(cfg.FallbackReply) == "" {
		cfg.FallbackReply = firstNonEmpty(file.FallbackReply, DefaultFallbackReply)
	}

	providers := file.Providers
	if len(providers) == 0 {
		providers = pollinationsChain(cfg.PollinationsURL, cfg.PollinationsModels, cfg.ProviderTimeout)
	}
	cfg.Providers, err = resolveProviders(providers, cfg.ProviderTimeout)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
