package codec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pbkit.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
pack_repeated = true
json_enum_numbers = true
`)
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{PackRepeated: true, JSONEnumNumbers: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_AllKeys(t *testing.T) {
	path := writeConfig(t, `
pack_repeated = false
json_original_names = true
json_enum_numbers = false
json_emit_defaults = true
`)
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{JSONOriginalNames: true, JSONEmitDefaults: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Empty(t *testing.T) {
	got, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != DefaultConfig() {
		t.Errorf("LoadConfig = %+v, want defaults", got)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantMsg string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.toml") }, "load codec config"},
		{"bad syntax", func(t *testing.T) string { return writeConfig(t, "pack_repeated = ") }, "load codec config"},
		{"wrong type", func(t *testing.T) string { return writeConfig(t, `pack_repeated = "yes"`) }, "load codec config"},
		{"unknown key", func(t *testing.T) string { return writeConfig(t, "pack_everything = true") }, `unknown key "pack_everything"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.path(t))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("LoadConfig error = %v, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPackRepeated, "false")
	t.Setenv(EnvJSONOriginalNames, "1")
	t.Setenv(EnvJSONEnumNumbers, "maybe")
	t.Setenv(EnvJSONEmitDefaults, "true")

	got := Config{PackRepeated: true, JSONEnumNumbers: true}.ApplyEnv()
	want := Config{JSONOriginalNames: true, JSONEnumNumbers: true, JSONEmitDefaults: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyEnv mismatch (-want +got):\n%s", diff)
	}
}
