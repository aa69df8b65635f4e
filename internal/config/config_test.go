package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// Property: merge precedence is project > global > defaults, per field.
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/:._-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		// Each field is independently either empty or a non-empty value.
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasAPIBaseURL") {
			cfg.APIBaseURL = nonEmptyString.Draw(t, "apiBaseURL")
		}
		if rapid.Bool().Draw(t, "hasListenAddr") {
			cfg.ListenAddr = nonEmptyString.Draw(t, "listenAddr")
		}
		if rapid.Bool().Draw(t, "hasDBPath") {
			cfg.DBPath = nonEmptyString.Draw(t, "dbPath")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "APIBaseURL", global.APIBaseURL, project.APIBaseURL, defaults.APIBaseURL, merged.APIBaseURL)
		checkStringField(t, "ListenAddr", global.ListenAddr, project.ListenAddr, defaults.ListenAddr, merged.ListenAddr)
		checkStringField(t, "DBPath", global.DBPath, project.DBPath, defaults.DBPath, merged.DBPath)
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	want := defaultVal
	if globalVal != "" {
		want = globalVal
	}
	if projectVal != "" {
		want = projectVal
	}
	if mergedVal != want {
		t.Fatalf("%s: merged %q, want %q (global %q, project %q)", name, mergedVal, want, globalVal, projectVal)
	}
}

func TestMergeNilInputs(t *testing.T) {
	merged := Merge(nil, nil)
	if merged != Defaults() {
		t.Errorf("Merge(nil, nil) = %+v, want defaults %+v", merged, Defaults())
	}
}

func TestLoadFileMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := loadFile(path, true)
	if err == nil {
		t.Fatal("expected error for malformed config, got nil")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestLoadFileAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := loadFile(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || *cfg != Defaults() {
		t.Errorf("expected defaults for absent file, got %+v", cfg)
	}

	cfg, err = loadFile(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil for absent project config, got %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GENFIN_API_URL", "http://example.test:9999")
	t.Setenv("GENFIN_ADDR", "")

	cfg := ApplyEnv(Defaults())
	if cfg.APIBaseURL != "http://example.test:9999" {
		t.Errorf("APIBaseURL = %q, want env override", cfg.APIBaseURL)
	}
	if cfg.ListenAddr != Defaults().ListenAddr {
		t.Errorf("empty env var must not override ListenAddr, got %q", cfg.ListenAddr)
	}
}
