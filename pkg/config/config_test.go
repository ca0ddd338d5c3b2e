package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(configDir, ConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Model != "" {
		t.Errorf("Model should be empty, got %q", cfg.Model)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() should be empty, got %q", cfg.Path())
	}
}

func TestLoad_ValidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, `
model: "gpt-4o-mini"
exclude_paths:
  - "dist/**"
  - "**/*.lock"
conventions_file: "CONVENTIONS.md"
max_files: 3
log_level: "debug"
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want %q", cfg.Model, "gpt-4o-mini")
	}
	if want := []string{"dist/**", "**/*.lock"}; !reflect.DeepEqual(cfg.ExcludePaths, want) {
		t.Errorf("ExcludePaths = %v, want %v", cfg.ExcludePaths, want)
	}
	if cfg.ConventionsFile != "CONVENTIONS.md" {
		t.Errorf("ConventionsFile = %q", cfg.ConventionsFile)
	}
	if cfg.MaxFiles != 3 {
		t.Errorf("MaxFiles = %d, want 3", cfg.MaxFiles)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_SearchParentDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `model: "gpt-4.1"`)

	subdir := filepath.Join(tmpDir, "subdir", "nested")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(subdir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Model != "gpt-4.1" {
		t.Errorf("Model = %q, want %q", cfg.Model, "gpt-4.1")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "invalid: yaml: content:[")

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Load() should return error for invalid YAML")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected *ConfigurationError, got %T", err)
	}
}

func TestResolveString(t *testing.T) {
	tests := []struct {
		name         string
		cliValue     string
		envValue     string
		configValue  string
		defaultValue string
		wantValue    string
		wantSource   string
	}{
		{
			name:         "CLI takes precedence",
			cliValue:     "cli-value",
			envValue:     "env-value",
			configValue:  "config-value",
			defaultValue: "default-value",
			wantValue:    "cli-value",
			wantSource:   SourceCLI,
		},
		{
			name:         "Env takes precedence over config",
			envValue:     "env-value",
			configValue:  "config-value",
			defaultValue: "default-value",
			wantValue:    "env-value",
			wantSource:   SourceEnv,
		},
		{
			name:         "Config takes precedence over default",
			configValue:  "config-value",
			defaultValue: "default-value",
			wantValue:    "config-value",
			wantSource:   SourceConfig,
		},
		{
			name:         "Default when nothing else is set",
			defaultValue: "default-value",
			wantValue:    "default-value",
			wantSource:   SourceDefault,
		},
		{
			name:       "Empty default",
			wantValue:  "",
			wantSource: SourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotValue, gotSource := ResolveString(tt.cliValue, tt.envValue, tt.configValue, tt.defaultValue)
			if gotValue != tt.wantValue {
				t.Errorf("value = %q, want %q", gotValue, tt.wantValue)
			}
			if gotSource != tt.wantSource {
				t.Errorf("source = %q, want %q", gotSource, tt.wantSource)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName(InputOpenAIAPIKey); got != "INPUT_OPENAI-API-KEY" {
		t.Errorf("EnvName() = %q", got)
	}
	if got := EnvName("exclude paths"); got != "INPUT_EXCLUDE_PATHS" {
		t.Errorf("EnvName() = %q", got)
	}
}

func TestResolve_Defaults(t *testing.T) {
	in, err := Resolver{
		Getenv: envMap(map[string]string{
			"INPUT_OPENAI-API-KEY": "sk-test",
			"GITHUB_TOKEN":         "ghs_test",
		}),
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if in.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", in.Model, DefaultModel)
	}
	if in.OpenAIAPIKey != "sk-test" || in.GitHubToken != "ghs_test" {
		t.Errorf("unexpected credentials: %q / %q", in.OpenAIAPIKey, in.GitHubToken)
	}
	if in.MaxFiles != 0 || in.DryRun {
		t.Errorf("MaxFiles = %d, DryRun = %v", in.MaxFiles, in.DryRun)
	}
	if len(in.ExcludePaths) != 0 {
		t.Errorf("ExcludePaths = %v", in.ExcludePaths)
	}
	if in.LogLevel != "info" || in.LogFormat != "console" {
		t.Errorf("log = %q/%q", in.LogLevel, in.LogFormat)
	}
	if in.Sources[InputModel] != SourceDefault || in.Sources[InputGitHubToken] != SourceEnv {
		t.Errorf("unexpected sources: %v", in.Sources)
	}
}

func TestResolve_Precedence(t *testing.T) {
	project := &ProjectConfig{
		Model:        "from-config",
		ExcludePaths: []string{"vendor/**"},
		MaxFiles:     5,
		LogFormat:    "json",
	}

	in, err := Resolver{
		Flags: map[string]string{
			InputModel:       "from-flag",
			InputDryRun:      "true",
			InputGitHubToken: "flag-token",
		},
		Getenv: envMap(map[string]string{
			"INPUT_MODEL":          "from-env",
			"INPUT_MAX-FILES":      "1",
			"INPUT_EXCLUDE-PATHS":  "dist/**, **/*.min.js\n\n",
			"INPUT_OPENAI-API-KEY": "sk-input",
			"OPENAI_API_KEY":       "sk-plain",
			"INPUT_GITHUB-TOKEN":   "env-token",
		}),
		Project: project,
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if in.Model != "from-flag" {
		t.Errorf("Model = %q", in.Model)
	}
	if in.MaxFiles != 1 {
		t.Errorf("MaxFiles = %d, want env value 1", in.MaxFiles)
	}
	if want := []string{"dist/**", "**/*.min.js"}; !reflect.DeepEqual(in.ExcludePaths, want) {
		t.Errorf("ExcludePaths = %v, want %v", in.ExcludePaths, want)
	}
	if in.OpenAIAPIKey != "sk-input" {
		t.Errorf("OpenAIAPIKey = %q, want the INPUT_ value", in.OpenAIAPIKey)
	}
	if in.GitHubToken != "flag-token" {
		t.Errorf("GitHubToken = %q", in.GitHubToken)
	}
	if !in.DryRun {
		t.Error("DryRun should be true")
	}
	if in.LogFormat != "json" || in.Sources[InputLogFormat] != SourceConfig {
		t.Errorf("LogFormat = %q from %q", in.LogFormat, in.Sources[InputLogFormat])
	}
}

func TestResolve_ProjectExcludes(t *testing.T) {
	in, err := Resolver{
		Getenv: envMap(map[string]string{
			"OPENAI_API_KEY": "sk",
			"GITHUB_TOKEN":   "gh",
		}),
		Project: &ProjectConfig{ExcludePaths: []string{"vendor/**", " "}, MaxFiles: 2},
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := []string{"vendor/**"}; !reflect.DeepEqual(in.ExcludePaths, want) {
		t.Errorf("ExcludePaths = %v, want %v", in.ExcludePaths, want)
	}
	if in.MaxFiles != 2 {
		t.Errorf("MaxFiles = %d, want 2", in.MaxFiles)
	}
}

func TestResolve_Errors(t *testing.T) {
	base := map[string]string{
		"OPENAI_API_KEY": "sk",
		"GITHUB_TOKEN":   "gh",
	}
	with := func(extra map[string]string) map[string]string {
		out := map[string]string{}
		for k, v := range base {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	tests := []struct {
		name      string
		env       map[string]string
		wantInput string
		wantMsg   string
	}{
		{
			name:      "missing model key",
			env:       map[string]string{"GITHUB_TOKEN": "gh"},
			wantInput: InputOpenAIAPIKey,
			wantMsg:   "OPENAI_API_KEY",
		},
		{
			name:      "missing github token",
			env:       map[string]string{"OPENAI_API_KEY": "sk"},
			wantInput: InputGitHubToken,
			wantMsg:   "INPUT_GITHUB-TOKEN",
		},
		{
			name:      "bad max-files",
			env:       with(map[string]string{"INPUT_MAX-FILES": "many"}),
			wantInput: InputMaxFiles,
		},
		{
			name:      "negative max-files",
			env:       with(map[string]string{"INPUT_MAX-FILES": "-1"}),
			wantInput: InputMaxFiles,
		},
		{
			name:      "bad dry-run",
			env:       with(map[string]string{"INPUT_DRY-RUN": "maybe"}),
			wantInput: InputDryRun,
		},
		{
			name:      "bad log level",
			env:       with(map[string]string{"INPUT_LOG-LEVEL": "loud"}),
			wantInput: InputLogLevel,
			wantMsg:   "must be one of",
		},
		{
			name:      "bad base url",
			env:       with(map[string]string{"OPENAI_BASE_URL": "not a url"}),
			wantInput: InputOpenAIBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolver{Getenv: envMap(tt.env)}.Resolve()
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %T", err)
			}
			if cfgErr.Input != tt.wantInput {
				t.Errorf("Input = %q, want %q", cfgErr.Input, tt.wantInput)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
