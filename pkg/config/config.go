// Package config resolves the inputs of a review run.
//
// Every input can come from a command-line flag, from the INPUT_<NAME>
// variable GitHub Actions sets for a step's `with:` block, or from the
// project file .conventional-review/config.yaml. Precedence is
// flag > environment > project config > default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/holon-run/conventional-review/pkg/diff"
)

const (
	// ConfigDir is the directory name for project configuration
	ConfigDir = ".conventional-review"
	// ConfigFile is the name of the configuration file
	ConfigFile = "config.yaml"
	// ConfigPath is the full path to the config file relative to project root
	ConfigPath = ConfigDir + "/" + ConfigFile

	// DefaultModel is the model used when none is configured
	DefaultModel = "gpt-4o"
)

// Input names, shared by flags, action inputs and error messages.
const (
	InputModel           = "model"
	InputOpenAIAPIKey    = "openai-api-key"
	InputOpenAIBaseURL   = "openai-base-url"
	InputGitHubToken     = "github-token"
	InputExcludePaths    = "exclude-paths"
	InputConventionsFile = "conventions-file"
	InputPromptTemplate  = "prompt-template"
	InputMaxFiles        = "max-files"
	InputDryRun          = "dry-run"
	InputOutputDir       = "output-dir"
	InputLogLevel        = "log-level"
	InputLogFormat       = "log-format"
)

// Source names where a resolved value came from.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceConfig  = "config"
	SourceDefault = "default"
)

// fallbackEnv lists plain variables consulted after INPUT_<NAME>.
var fallbackEnv = map[string]string{
	InputOpenAIAPIKey:  "OPENAI_API_KEY",
	InputOpenAIBaseURL: "OPENAI_BASE_URL",
	InputGitHubToken:   "GITHUB_TOKEN",
}

// ConfigurationError reports a missing or invalid input.
type ConfigurationError struct {
	Input string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %v", e.Input, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ProjectConfig is the content of .conventional-review/config.yaml.
// Credentials are never read from it; they come from flags or env only.
type ProjectConfig struct {
	Model           string   `yaml:"model,omitempty"`
	OpenAIBaseURL   string   `yaml:"openai_base_url,omitempty"`
	ExcludePaths    []string `yaml:"exclude_paths,omitempty"`
	ConventionsFile string   `yaml:"conventions_file,omitempty"`
	PromptTemplate  string   `yaml:"prompt_template,omitempty"`
	MaxFiles        int      `yaml:"max_files,omitempty"`
	OutputDir       string   `yaml:"output_dir,omitempty"`
	LogLevel        string   `yaml:"log_level,omitempty"`
	LogFormat       string   `yaml:"log_format,omitempty"`

	// path is the file the config was read from, empty when none was found
	path string
}

// Inputs is the fully resolved configuration of one run.
type Inputs struct {
	Model           string   `validate:"required"`
	OpenAIAPIKey    string   `validate:"required"`
	OpenAIBaseURL   string   `validate:"omitempty,url"`
	GitHubToken     string   `validate:"required"`
	ExcludePaths    []string `validate:"dive,required"`
	ConventionsFile string
	PromptTemplate  string
	MaxFiles        int `validate:"gte=0"`
	DryRun          bool
	OutputDir       string
	LogLevel        string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat       string `validate:"omitempty,oneof=console text json"`

	// Sources maps each input name to where its value came from
	Sources map[string]string
}

// Load loads the project configuration from the given directory.
// It searches for .conventional-review/config.yaml in the directory and its parents.
//
// If no config file is found, it returns a zero config and nil error.
// If a config file is found but cannot be parsed, it returns an error.
func Load(dir string) (*ProjectConfig, error) {
	configPath, err := findConfigPath(dir)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return &ProjectConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("failed to parse %s: %w", configPath, err)}
	}
	cfg.path = configPath

	return &cfg, nil
}

// LoadFromCurrentDir loads the project configuration from the current working directory.
func LoadFromCurrentDir() (*ProjectConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Load(dir)
}

// Path returns the file the config was loaded from, or "".
func (c *ProjectConfig) Path() string {
	return c.path
}

// findConfigPath searches for the config file in dir and its parent directories.
// It returns the full path to the config file, or empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}

// ResolveString returns the effective value for a string configuration field.
// Precedence: cliValue > envValue > configValue > defaultValue.
// Returns the effective value and its source.
func ResolveString(cliValue, envValue, configValue, defaultValue string) (string, string) {
	if cliValue != "" {
		return cliValue, SourceCLI
	}
	if envValue != "" {
		return envValue, SourceEnv
	}
	if configValue != "" {
		return configValue, SourceConfig
	}
	return defaultValue, SourceDefault
}

// EnvName returns the variable GitHub Actions uses for an action input:
// upper-cased, spaces turned into underscores, hyphens kept.
func EnvName(input string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(input, " ", "_"))
}

// Resolver turns flags, environment and project config into Inputs.
type Resolver struct {
	// Flags holds the flags explicitly set on the command line, by input name
	Flags map[string]string
	// Getenv defaults to os.Getenv
	Getenv  func(string) string
	Project *ProjectConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Resolve computes and validates the inputs of a run.
// Any missing or malformed input yields a *ConfigurationError.
func (r Resolver) Resolve() (*Inputs, error) {
	project := r.Project
	if project == nil {
		project = &ProjectConfig{}
	}

	in := &Inputs{Sources: map[string]string{}}
	str := func(name, configValue, defaultValue string) string {
		v, src := ResolveString(
			strings.TrimSpace(r.Flags[name]),
			r.env(name),
			strings.TrimSpace(configValue),
			defaultValue,
		)
		in.Sources[name] = src
		return v
	}

	in.Model = str(InputModel, project.Model, DefaultModel)
	in.OpenAIAPIKey = str(InputOpenAIAPIKey, "", "")
	in.OpenAIBaseURL = str(InputOpenAIBaseURL, project.OpenAIBaseURL, "")
	in.GitHubToken = str(InputGitHubToken, "", "")
	in.ConventionsFile = str(InputConventionsFile, project.ConventionsFile, "")
	in.PromptTemplate = str(InputPromptTemplate, project.PromptTemplate, "")
	in.OutputDir = str(InputOutputDir, project.OutputDir, "")
	in.LogLevel = strings.ToLower(str(InputLogLevel, project.LogLevel, "info"))
	in.LogFormat = strings.ToLower(str(InputLogFormat, project.LogFormat, "console"))

	excludes := str(InputExcludePaths, strings.Join(project.ExcludePaths, ","), "")
	in.ExcludePaths = diff.SplitPatterns(excludes)

	maxFiles := ""
	if project.MaxFiles != 0 {
		maxFiles = strconv.Itoa(project.MaxFiles)
	}
	n, err := strconv.Atoi(str(InputMaxFiles, maxFiles, "0"))
	if err != nil {
		return nil, &ConfigurationError{Input: InputMaxFiles, Err: fmt.Errorf("not an integer: %w", err)}
	}
	in.MaxFiles = n

	dryRun, err := parseBool(str(InputDryRun, "", "false"))
	if err != nil {
		return nil, &ConfigurationError{Input: InputDryRun, Err: err}
	}
	in.DryRun = dryRun

	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	return in, nil
}

func (r Resolver) env(name string) string {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvName(name))); v != "" {
		return v
	}
	if fallback, ok := fallbackEnv[name]; ok {
		return strings.TrimSpace(getenv(fallback))
	}
	return ""
}

// parseBool accepts the spellings action inputs use.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "off":
		return false, nil
	case "true", "1", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// fieldInputs maps Inputs fields to input names for validation messages.
var fieldInputs = map[string]string{
	"Model":         InputModel,
	"OpenAIAPIKey":  InputOpenAIAPIKey,
	"OpenAIBaseURL": InputOpenAIBaseURL,
	"GitHubToken":   InputGitHubToken,
	"ExcludePaths":  InputExcludePaths,
	"MaxFiles":      InputMaxFiles,
	"LogLevel":      InputLogLevel,
	"LogFormat":     InputLogFormat,
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Err: err}
	}

	fe := verrs[0]
	field := fe.StructField()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	input := fieldInputs[field]

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
		if env, ok := fallbackEnv[input]; ok {
			msg = fmt.Sprintf("is required (set --%s, %s or %s)", input, EnvName(input), env)
		}
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		msg = "must be a URL"
	case "gte":
		msg = fmt.Sprintf("must be >= %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return &ConfigurationError{Input: input, Err: errors.New(msg)}
}
