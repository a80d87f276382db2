package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/zalando/go-keyring"
)

// ProvidersFile is the TOML document named by CHAT_PROVIDERS_FILE.
type ProvidersFile struct {
	Persona       string           `toml:"persona"`
	FallbackReply string           `toml:"fallback_reply"`
	Providers     []ProviderConfig `toml:"providers"`
}

// ProviderConfig is one [[providers]] entry. Keys are never literal: they come
// from an environment variable or the OS keyring.
type ProviderConfig struct {
	Name          string   `toml:"name"`
	Kind          string   `toml:"kind"`
	Endpoint      string   `toml:"endpoint"`
	Model         string   `toml:"model"`
	APIKeyEnv     string   `toml:"api_key_env"`
	APIKeyKeyring string   `toml:"api_key_keyring"`
	Timeout       Duration `toml:"timeout"`
	Temperature   float64  `toml:"temperature"`
	MaxTokens     int      `toml:"max_tokens"`
	Serialize     bool     `toml:"serialize"`
	Cooldown      Duration `toml:"cooldown"`

	APIKey string `toml:"-"`
}

// Duration decodes TOML strings such as "18s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadProvidersFile decodes the providers file and rejects unknown keys.
func LoadProvidersFile(path string) (ProvidersFile, error) {
	var file ProvidersFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return ProvidersFile{}, fmt.Errorf("CHAT_PROVIDERS_FILE %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return ProvidersFile{}, fmt.Errorf("CHAT_PROVIDERS_FILE %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return file, nil
}

func pollinationsChain(endpoint string, models []string, timeout time.Duration) []ProviderConfig {
	out := make([]ProviderConfig, 0, len(models))
	for _, model := range models {
		out = append(out, ProviderConfig{
			Name:        "pollinations-" + model,
			Kind:        "http",
			Endpoint:    endpoint,
			Model:       model,
			Timeout:     Duration{timeout},
			Temperature: 0.7,
			MaxTokens:   512,
		})
	}
	return out
}

func resolveProviders(providers []ProviderConfig, defaultTimeout time.Duration) ([]ProviderConfig, error) {
	out := make([]ProviderConfig, 0, len(providers))
	for i, p := range providers {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("provider #%d: name is required", i+1)
		}
		if p.Timeout.Duration <= 0 {
			p.Timeout.Duration = defaultTimeout
		}
		if p.Cooldown.Duration < 0 {
			return nil, fmt.Errorf("provider %s: cooldown must not be negative", p.Name)
		}
		key, err := resolveSecret(p)
		if err != nil {
			return nil, err
		}
		p.APIKey = key
		out = append(out, p)
	}
	return out, nil
}

// resolveSecret reads the provider key from env or from "service/user" in the
// OS keyring.
func resolveSecret(p ProviderConfig) (string, error) {
	switch {
	case p.APIKeyEnv != "" && p.APIKeyKeyring != "":
		return "", fmt.Errorf("provider %s: set only one of api_key_env and api_key_keyring", p.Name)
	case p.APIKeyEnv != "":
		v := strings.TrimSpace(os.Getenv(p.APIKeyEnv))
		if v == "" {
			return "", fmt.Errorf("provider %s: %s is not set", p.Name, p.APIKeyEnv)
		}
		return v, nil
	case p.APIKeyKeyring != "":
		service, user, ok := strings.Cut(p.APIKeyKeyring, "/")
		if !ok || service == "" || user == "" {
			return "", fmt.Errorf("provider %s: api_key_keyring must be \"service/user\"", p.Name)
		}
		v, err := keyring.Get(service, user)
		if err != nil {
			return "", fmt.Errorf("provider %s: keyring %s: %w", p.Name, p.APIKeyKeyring, err)
		}
		return strings.TrimSpace(v), nil
	default:
		return "", nil
	}
}

// MaskKey returns a masked version of an API key for display.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
