package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable genfin settings.
type Config struct {
	APIBaseURL string `json:"api_base_url"` // backend system of record
	ListenAddr string `json:"listen_addr"`  // mock server bind address
	DBPath     string `json:"db_path"`      // mock server SQLite file
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		APIBaseURL: "http://127.0.0.1:5000",
		ListenAddr: "127.0.0.1:5000",
		DBPath:     "genfin_demo.db",
	}
}

// LoadGlobal reads ~/.config/genfin/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .genfinconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".genfinconfig", false)
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "genfin", "config.json"), nil
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	// Apply global values over defaults.
	if global != nil {
		if global.APIBaseURL != "" {
			result.APIBaseURL = global.APIBaseURL
		}
		if global.ListenAddr != "" {
			result.ListenAddr = global.ListenAddr
		}
		if global.DBPath != "" {
			result.DBPath = global.DBPath
		}
	}

	// Apply project values over global.
	if project != nil {
		if project.APIBaseURL != "" {
			result.APIBaseURL = project.APIBaseURL
		}
		if project.ListenAddr != "" {
			result.ListenAddr = project.ListenAddr
		}
		if project.DBPath != "" {
			result.DBPath = project.DBPath
		}
	}

	return result
}

// ApplyEnv overlays environment variables on top of cfg.
// Variables win over both config files; empty variables are ignored.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("GENFIN_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("GENFIN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GENFIN_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	return cfg
}

// Exists reports whether the global config file is present on disk.
func Exists() bool {
	path, err := GlobalPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes cfg to the global config file, creating the config directory
// if needed. The write goes through a temp file so os.Rename is atomic.
func Save(cfg Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	err = os.Rename(tmpName, path)
	return err
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
