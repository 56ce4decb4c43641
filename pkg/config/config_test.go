package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromLookup(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		env     map[string]string
		want    Config
		wantErr string
	}{
		"defaults": {
			env:  nil,
			want: Default(),
		},
		"all keys": {
			env: map[string]string{
				KeyBootstrap:     "false",
				KeyMaxSteps:      "500",
				KeyStepsPerFrame: "100",
				KeyScale:         "3",
				KeyVerbose:       "1",
				KeyTokensXML:     "true",
			},
			want: Config{
				Bootstrap:     false,
				MaxSteps:      500,
				StepsPerFrame: 100,
				Scale:         3,
				Verbose:       true,
				TokensXML:     true,
			},
		},
		"empty value keeps default": {
			env:  map[string]string{KeyScale: ""},
			want: Default(),
		},
		"unbounded steps": {
			env: map[string]string{KeyMaxSteps: "0"},
			want: func() Config {
				c := Default()
				c.MaxSteps = 0
				return c
			}(),
		},
		"bad boolean": {
			env:     map[string]string{KeyBootstrap: "maybe"},
			wantErr: KeyBootstrap,
		},
		"bad integer": {
			env:     map[string]string{KeyMaxSteps: "lots"},
			wantErr: KeyMaxSteps,
		},
		"scale below minimum": {
			env:     map[string]string{KeyScale: "0"},
			wantErr: "must be at least 1",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := FromLookup(lookupMap(tt.env))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("FromLookup() error = %v; want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromLookup() failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch. (-expect +got)\n%s", diff)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "# local overrides\nGOHACK_SCALE=4\nGOHACK_MAX_STEPS=1234\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(KeyMaxSteps, "99")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Scale != 4 {
		t.Errorf("Scale = %d; want 4 from the env file", got.Scale)
	}
	if got.MaxSteps != 99 {
		t.Errorf("MaxSteps = %d; want 99 from the process environment", got.MaxSteps)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for a missing explicit env file")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without %s failed: %v", DefaultEnvFile, err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("mismatch. (-expect +got)\n%s", diff)
	}
}
