package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "DEPTLINE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "gemini.api_key", typ: kString, env: "DEPTLINE_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "DEPTLINE_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "google.api_key", typ: kString, env: "DEPTLINE_GOOGLE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Google.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Google.APIKey },
	},
	{
		key: "google.search_engine_id", typ: kString, env: "DEPTLINE_GOOGLE_SEARCH_ENGINE_ID",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Google.SearchEngineID = v.(string) },
		extract: func(cfg Config) any { return cfg.Google.SearchEngineID },
	},
	{
		key: "institution.name", typ: kString, env: "DEPTLINE_INSTITUTION_NAME",
		apply:   func(cfg *Config, v any) { cfg.Institution.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Institution.Name },
	},
	{
		key: "institution.area_codes", typ: kString, env: "DEPTLINE_INSTITUTION_AREA_CODES",
		apply:   func(cfg *Config, v any) { cfg.Institution.AreaCodes = v.(string) },
		extract: func(cfg Config) any { return cfg.Institution.AreaCodes },
	},
	{
		key: "search.max_results", typ: kInt, env: "DEPTLINE_SEARCH_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Search.MaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.MaxResults },
	},
	{
		key: "cache.duration_days", typ: kInt, env: "DEPTLINE_CACHE_DURATION_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Cache.DurationDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.DurationDays },
	},
	{
		key: "storage.data_dir", typ: kString, env: "DEPTLINE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "DEPTLINE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
