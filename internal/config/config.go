package config

import (
	"strings"
)

type Config struct {
	Server      ServerConfig
	Gemini      GeminiConfig
	Google      GoogleConfig
	Institution InstitutionConfig
	Search      SearchConfig
	Cache       CacheConfig
	Storage     StorageConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GoogleConfig struct {
	APIKey         string
	SearchEngineID string
}

type InstitutionConfig struct {
	Name      string
	AreaCodes string // comma-separated
}

// AreaCodeList splits the configured area codes.
func (c InstitutionConfig) AreaCodeList() []string {
	var out []string
	for _, s := range strings.Split(c.AreaCodes, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

type SearchConfig struct {
	MaxResults int
}

type CacheConfig struct {
	DurationDays int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Institution: InstitutionConfig{
			Name:      "University of Houston",
			AreaCodes: "713,832",
		},
		Search: SearchConfig{
			MaxResults: 2,
		},
		Cache: CacheConfig{
			DurationDays: 30,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.deptline.app) and
// secrets fall back to macOS Keychain. On Linux the backend is a JSON file
// at $XDG_CONFIG_HOME/deptline/config.json and secrets fall back to a
// secrets file under $XDG_DATA_HOME/deptline.
//
// Environment variables (DEPTLINE_*) override backend values on all
// platforms. Missing API keys are not an error: the pipeline degrades to
// cache and directory lookups without them.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get("deptline", "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}
	if cfg.Google.APIKey == "" {
		if key, err := kc.Get("deptline", "google_api_key"); err == nil && key != "" {
			cfg.Google.APIKey = key
		}
	}
	if cfg.Google.SearchEngineID == "" {
		if id, err := kc.Get("deptline", "google_search_engine_id"); err == nil && id != "" {
			cfg.Google.SearchEngineID = id
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
