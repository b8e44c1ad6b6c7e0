// Package config loads project settings from waskit.yaml and the
// environment. Settings are read once per command invocation; flags
// override file values, file values override defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	waskit "github.com/waskit/waskit"
)

const (
	// FileName is the project config file viper looks for (without extension).
	FileName = "waskit"
	// EnvPrefix namespaces environment overrides, e.g. WASKIT_STAGE.
	EnvPrefix = "WASKIT"
)

// Config holds everything the CLI needs to build, sign and deploy a module.
type Config struct {
	// Name is the deployment name. Defaults to the manifest name.
	Name string `mapstructure:"name"`
	// Stage is the gateway stage to deploy to.
	Stage string `mapstructure:"stage"`
	// Region is the provider region.
	Region string `mapstructure:"region"`

	// SourceDir is the module source tree handed to the compiler.
	SourceDir string `mapstructure:"source_dir"`
	// Target is the compiler target triple.
	Target string `mapstructure:"target"`

	// Manifest is the path to the resource manifest.
	Manifest string `mapstructure:"manifest"`
	// KeyDir holds the account and module seed files.
	KeyDir string `mapstructure:"key_dir"`
	// StateDir holds deployment state and its lock file.
	StateDir string `mapstructure:"state_dir"`
	// ArtifactDir receives the unsigned and signed module files.
	ArtifactDir string `mapstructure:"artifact_dir"`

	// Capabilities requested at signing time. Empty means the defaults.
	Capabilities []string `mapstructure:"capabilities"`

	// FunctionEnv is passed through to the deployed function's environment.
	FunctionEnv map[string]string `mapstructure:"function_env"`
}

// Defaults returns the configuration used when no file or environment
// override is present.
func Defaults() Config {
	return Config{
		Stage:     "test",
		Region:    "us-east-1",
		SourceDir: ".",
		Target:    "wasm32-unknown-unknown",
		Manifest:  "deploy.yaml",
		KeyDir:    ".waskit/keys",
		StateDir:  ".waskit/state",
		ArtifactDir: filepath.Join(
			"target", "wasm32-unknown-unknown", "release",
		),
		FunctionEnv: map[string]string{
			"RUST_LOG":       "info",
			"RUST_BACKTRACE": "1",
		},
	}
}

// Load reads waskit.yaml from dir, applies WASKIT_ environment overrides and
// fills in defaults. A missing config file is not an error.
func Load(dir string) (Config, error) {
	v := viper.New()

	def := Defaults()
	v.SetDefault("name", "")
	v.SetDefault("stage", def.Stage)
	v.SetDefault("region", def.Region)
	v.SetDefault("source_dir", def.SourceDir)
	v.SetDefault("target", def.Target)
	v.SetDefault("manifest", def.Manifest)
	v.SetDefault("key_dir", def.KeyDir)
	v.SetDefault("state_dir", def.StateDir)
	v.SetDefault("artifact_dir", def.ArtifactDir)
	v.SetDefault("function_env", def.FunctionEnv)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Capabilities) == 0 {
		cfg.Capabilities = capStrings(waskit.DefaultCapabilities)
	}
	cfg.Capabilities = normalize(cfg.Capabilities)

	return cfg, nil
}

// UnsignedPath is where the compiler output lands before signing.
func (c Config) UnsignedPath(name string) string {
	return filepath.Join(c.ArtifactDir, name+".wasm")
}

// SignedPath is where the signed artifact is written.
func (c Config) SignedPath(name string) string {
	return filepath.Join(c.ArtifactDir, name+"_s.wasm")
}

// AccountSeedPath is the account seed file inside KeyDir.
func (c Config) AccountSeedPath() string {
	return filepath.Join(c.KeyDir, "account.nk")
}

// ModuleSeedPath is the module seed file inside KeyDir.
func (c Config) ModuleSeedPath() string {
	return filepath.Join(c.KeyDir, "module.nk")
}

// EnsureDirs creates the directories the deploy pipeline writes into.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.KeyDir, c.StateDir, c.ArtifactDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	// Seed files are secrets, keep the directory tight.
	return os.Chmod(c.KeyDir, 0o700)
}

func capStrings(caps []waskit.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

func normalize(caps []string) []string {
	in := make([]waskit.Capability, len(caps))
	for i, c := range caps {
		in[i] = waskit.Capability(c)
	}
	return capStrings(waskit.NormalizeCapabilities(in))
}
