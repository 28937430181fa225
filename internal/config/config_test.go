package config

import (
	"errors"
	"testing"
)

type fakeBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (f *fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := f.strings[key]
	return v, ok, nil
}

func (f *fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := f.ints[key]
	return v, ok, nil
}

func (f *fakeBackend) SetString(key, val string) error { return nil }
func (f *fakeBackend) SetInt(key string, val int) error { return nil }
func (f *fakeBackend) Delete(key string) error          { return nil }

type fakeKeychain struct {
	values map[string]string
}

func (f fakeKeychain) Get(service, account string) (string, error) {
	v, ok := f.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(&fakeBackend{}, fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4600 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Institution.Name != "University of Houston" {
		t.Errorf("Institution = %q", cfg.Institution.Name)
	}
	if cfg.Search.MaxResults != 2 || cfg.Cache.DurationDays != 30 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Gemini.Model)
	}
}

func TestLoadWithoutSecretsSucceeds(t *testing.T) {
	// API keys are optional: the pipeline degrades without them.
	cfg, err := loadWith(&fakeBackend{}, fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Gemini.APIKey != "" || cfg.Google.APIKey != "" {
		t.Errorf("unexpected secrets: %+v", cfg)
	}
}

func TestBackendOverridesDefaults(t *testing.T) {
	b := &fakeBackend{
		strings: map[string]string{
			"institution.name":       "Rice University",
			"institution.area_codes": "713,281,832",
		},
		ints: map[string]int{
			"server.port":         9900,
			"cache.duration_days": 7,
		},
	}
	cfg, err := loadWith(b, fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Institution.Name != "Rice University" || cfg.Server.Port != 9900 || cfg.Cache.DurationDays != 7 {
		t.Errorf("backend values not applied: %+v", cfg)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("DEPTLINE_SERVER_PORT", "7001")
	t.Setenv("DEPTLINE_GEMINI_API_KEY", "env-key")

	b := &fakeBackend{ints: map[string]int{"server.port": 9900}}
	cfg, err := loadWith(b, fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Gemini.APIKey)
	}
}

func TestKeychainFallbackForSecrets(t *testing.T) {
	kc := fakeKeychain{values: map[string]string{
		"deptline/gemini_api_key":          "kc-gemini",
		"deptline/google_api_key":          "kc-google",
		"deptline/google_search_engine_id": "kc-cx",
	}}
	cfg, err := loadWith(&fakeBackend{}, kc)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Gemini.APIKey != "kc-gemini" || cfg.Google.APIKey != "kc-google" || cfg.Google.SearchEngineID != "kc-cx" {
		t.Errorf("keychain fallback not applied: %+v", cfg)
	}
}

func TestEnvWinsOverKeychain(t *testing.T) {
	t.Setenv("DEPTLINE_GOOGLE_API_KEY", "env-google")
	kc := fakeKeychain{values: map[string]string{"deptline/google_api_key": "kc-google"}}
	cfg, err := loadWith(&fakeBackend{}, kc)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Google.APIKey != "env-google" {
		t.Errorf("APIKey = %q, want env value", cfg.Google.APIKey)
	}
}

func TestAreaCodeList(t *testing.T) {
	ic := InstitutionConfig{AreaCodes: " 713, 832 ,,281"}
	got := ic.AreaCodeList()
	want := []string{"713", "832", "281"}
	if len(got) != len(want) {
		t.Fatalf("AreaCodeList() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AreaCodeList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "secret"
	for _, info := range ShowAll(cfg) {
		if info.Key == "gemini.api_key" || info.Key == "google.api_key" || info.Key == "google.search_engine_id" {
			t.Errorf("secret key %q exposed by ShowAll", info.Key)
		}
	}
}

func TestAPITokenStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	first, err := APIToken(dir)
	if err != nil {
		t.Fatalf("APIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}
	second, err := APIToken(dir)
	if err != nil {
		t.Fatalf("APIToken: %v", err)
	}
	if first != second {
		t.Error("token changed between calls")
	}
}
