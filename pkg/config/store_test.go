package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewFileStore(t *testing.T) {
	t.Run("uses custom path", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")

		store, err := NewFileStore(configPath)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		if store.Path() != configPath {
			t.Errorf("Expected path %s, got %s", configPath, store.Path())
		}
		if store.IsModified() {
			t.Error("New store should not be modified")
		}
	})

	t.Run("honours environment override", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "env.yaml")
		t.Setenv(EnvConfigPath, configPath)

		store, err := NewFileStore("")
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		if store.Path() != configPath {
			t.Errorf("Expected path %s, got %s", configPath, store.Path())
		}
	})

	t.Run("defaults under home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv(EnvConfigPath, "")

		path, err := DefaultPath()
		if err != nil {
			t.Fatalf("DefaultPath failed: %v", err)
		}
		if want := filepath.Join(home, ".waypoint", "config.json"); path != want {
			t.Errorf("Expected default path %s, got %s", want, path)
		}
	})

	t.Run("fails on unreadable content", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(configPath, []byte("{invalid json}"), 0600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := NewFileStore(configPath); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)

			store, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			if err := store.SetSection("navigation", map[string]any{
				"agents":       []any{"trace", "rules"},
				"event_buffer": 8,
			}); err != nil {
				t.Fatalf("SetSection failed: %v", err)
			}
			if !store.IsModified() {
				t.Error("Store should be modified after SetSection")
			}
			if err := store.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if store.IsModified() {
				t.Error("Store should not be modified after Save")
			}
			if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
				t.Error("Temp file should not remain after Save")
			}

			reloaded, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("Reload failed: %v", err)
			}
			section, _ := reloaded.GetSection("navigation")
			agents, ok := section["agents"].([]any)
			if !ok || len(agents) != 2 || agents[0] != "trace" {
				t.Errorf("Unexpected agents after reload: %#v", section["agents"])
			}
			if n, err := toInt("event_buffer", section["event_buffer"]); err != nil || n != 8 {
				t.Errorf("Unexpected event_buffer after reload: %#v", section["event_buffer"])
			}
		})
	}
}

func TestFileStore_Format(t *testing.T) {
	dir := t.TempDir()

	for _, tc := range []struct {
		name   string
		decode func([]byte, any) error
	}{
		{name: "config.json", decode: json.Unmarshal},
		{name: "config.yaml", decode: yaml.Unmarshal},
	} {
		path := filepath.Join(dir, tc.name)
		store, _ := NewFileStore(path)
		store.SetSection("pageload", map[string]any{"user_agent": "test"})
		if err := store.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", tc.name, err)
		}
		var doc document
		if err := tc.decode(raw, &doc); err != nil {
			t.Fatalf("%s is not in the expected format: %v", tc.name, err)
		}
		if doc.Version != "1.0" || doc.Sections["pageload"]["user_agent"] != "test" {
			t.Errorf("Unexpected %s content: %s", tc.name, raw)
		}
		if strings.HasSuffix(tc.name, ".yaml") && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
			t.Error("YAML store wrote JSON")
		}
	}
}

func TestFileStore_Copies(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "config.json"))

	data := map[string]any{"key": "value"}
	store.SetSection("s", data)
	data["key"] = "changed"

	got, _ := store.GetSection("s")
	if got["key"] != "value" {
		t.Error("SetSection should store a copy")
	}
	got["key"] = "changed"
	again, _ := store.GetSection("s")
	if again["key"] != "value" {
		t.Error("GetSection should return a copy")
	}

	if err := store.SetAll(map[string]map[string]any{"a": {"x": 1}, "b": {"y": 2}}); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	all, _ := store.GetAll()
	if len(all) != 2 || all["a"]["x"] != 1 {
		t.Errorf("Unexpected GetAll result: %v", all)
	}
	if missing, _ := store.GetSection("missing"); len(missing) != 0 {
		t.Error("Unknown section should be empty")
	}
}
