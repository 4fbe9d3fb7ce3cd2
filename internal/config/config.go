// Package config provides configuration management for snazzy using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration lives in .snazzy.yml by default. Every key can be
// overridden with a SNAZZY_<SECTION>_<KEY> environment variable, for example
// SNAZZY_BUILD_PREFIX=v42 or SNAZZY_SERVER_PORT=9000.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/snazzy/internal/errors"
)

// Config is the effective snazzy configuration.
type Config struct {
	Build     BuildConfig     `mapstructure:"build"     yaml:"build"     json:"build"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform" json:"transform"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"    json:"server"`
	Watch     WatchConfig     `mapstructure:"watch"     yaml:"watch"     json:"watch"`
	Log       LogConfig       `mapstructure:"log"       yaml:"log"       json:"log"`
}

// BuildConfig controls one build run.
type BuildConfig struct {
	// SourceDir is scanned for applications.
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir" json:"source_dir"`
	// SiteDir receives the bundles and processed pages.
	SiteDir string `mapstructure:"site_dir" yaml:"site_dir" json:"site_dir"`
	// Debug selects the tools' debug arguments instead of the release ones.
	Debug bool `mapstructure:"debug" yaml:"debug" json:"debug"`
	// Prefix is the deployment prefix inserted into static asset paths and
	// bundle file names. Empty disables rewriting.
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	// Parallelism bounds the number of concurrent fragment transforms.
	Parallelism int      `mapstructure:"parallelism" yaml:"parallelism" json:"parallelism"`
	Exclude     []string `mapstructure:"exclude"     yaml:"exclude"     json:"exclude"`
}

// ToolConfig describes one external fragment processor.
type ToolConfig struct {
	// Command is a shell-style command line; $COMPONENT expands to the
	// component name.
	Command     string   `mapstructure:"command"      yaml:"command"      json:"command"`
	DebugArgs   []string `mapstructure:"debug_args"   yaml:"debug_args"   json:"debug_args"`
	ReleaseArgs []string `mapstructure:"release_args" yaml:"release_args" json:"release_args"`
}

// ExtraArgs returns the mode-specific arguments appended to Command.
func (t ToolConfig) ExtraArgs(debug bool) []string {
	if debug {
		return t.DebugArgs
	}
	return t.ReleaseArgs
}

// TransformConfig configures the fragment processors.
type TransformConfig struct {
	Template ToolConfig    `mapstructure:"template" yaml:"template" json:"template"`
	Script   ToolConfig    `mapstructure:"script"   yaml:"script"   json:"script"`
	Style    ToolConfig    `mapstructure:"style"    yaml:"style"    json:"style"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"  json:"timeout"`
	// Dir is the working directory of every tool, where the relative
	// ./node_modules/.bin paths resolve.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// File, when set, names a directory receiving a JSON log file per day.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

var (
	prefixPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]*$`)
	envKeyReplacer = strings.NewReplacer(".", "_")
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "SNAZZY"

// BindEnv enables SNAZZY_<SECTION>_<KEY> overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("build.source_dir", ".")
	v.SetDefault("build.site_dir", "_site")
	v.SetDefault("build.debug", false)
	v.SetDefault("build.prefix", "")
	v.SetDefault("build.parallelism", 0)
	v.SetDefault("build.exclude", []string{"node_modules", ".git"})

	v.SetDefault("transform.template.command", `./node_modules/.bin/handlebars --name "$COMPONENT" -i -`)
	v.SetDefault("transform.template.debug_args", []string{})
	v.SetDefault("transform.template.release_args", []string{})
	v.SetDefault("transform.script.command", "./node_modules/.bin/babel --presets=@babel/preset-env")
	v.SetDefault("transform.script.debug_args", []string{})
	v.SetDefault("transform.script.release_args", []string{"--minified", "--no-comments"})
	v.SetDefault("transform.style.command", "./node_modules/.bin/sass --stdin --no-source-map")
	v.SetDefault("transform.style.debug_args", []string{"--style=expanded"})
	v.SetDefault("transform.style.release_args", []string{"--style=compressed"})
	v.SetDefault("transform.timeout", "2m")
	v.SetDefault("transform.dir", ".")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)

	v.SetDefault("watch.debounce", "300ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// LoadFrom builds and validates the configuration held by v. Defaults are
// registered on v first, so a bare viper instance yields Default().
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "cannot decode configuration")
	}

	// viper does not always decode slices set via env or flags
	if v.IsSet("build.exclude") && len(config.Build.Exclude) == 0 {
		config.Build.Exclude = v.GetStringSlice("build.exclude")
	}

	if config.Build.Parallelism == 0 {
		config.Build.Parallelism = runtime.NumCPU()
	}

	if err := validateConfig(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

// Default returns the configuration obtained without any file, flag or
// environment override.
func Default() *Config {
	config, err := LoadFrom(viper.New())
	if err != nil {
		// defaults are valid by construction
		panic(err)
	}
	return config
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}

	if err := validateTransformConfig(&config.Transform); err != nil {
		return fmt.Errorf("transform config: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce must not be negative")
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	return nil
}

func validateBuildConfig(config *BuildConfig) error {
	if err := validatePath(config.SourceDir); err != nil {
		return fmt.Errorf("invalid source_dir '%s': %w", config.SourceDir, err)
	}

	if err := validatePath(config.SiteDir); err != nil {
		return fmt.Errorf("invalid site_dir '%s': %w", config.SiteDir, err)
	}

	if filepath.Clean(config.SiteDir) == "." {
		return fmt.Errorf("site_dir must not be the working directory")
	}

	if config.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", config.Parallelism)
	}

	if !prefixPattern.MatchString(config.Prefix) {
		return fmt.Errorf("prefix %q may only contain letters, digits, '.', '_' and '-'", config.Prefix)
	}
	if config.Prefix != "" && strings.Trim(config.Prefix, ".") == "" {
		return fmt.Errorf("prefix %q must not consist of dots only", config.Prefix)
	}

	for _, pattern := range config.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	return nil
}

func validateTransformConfig(config *TransformConfig) error {
	tools := map[string]ToolConfig{
		"template": config.Template,
		"script":   config.Script,
		"style":    config.Style,
	}
	for name, tool := range tools {
		if strings.TrimSpace(tool.Command) == "" {
			return fmt.Errorf("%s command is empty", name)
		}
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if err := validatePath(config.Dir); err != nil {
		return fmt.Errorf("invalid dir '%s': %w", config.Dir, err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %q", char)
			}
		}
	}

	return nil
}

func validateLogConfig(config *LogConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", config.Level)
	}

	switch config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q (want text or json)", config.Format)
	}

	if config.File != "" {
		if err := validatePath(config.File); err != nil {
			return fmt.Errorf("invalid file '%s': %w", config.File, err)
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("should be relative path")
	}

	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
