package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/keys"
	"github.com/waskit/waskit/internal/manifest"
)

// loadConfig reads waskit.yaml from the working directory and applies any
// flag overrides the command collected.
func loadConfig(overrides func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return config.Config{}, err
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return cfg, nil
}

// loadManifest loads and validates the deployment manifest.
func loadManifest(cfg config.Config) (*manifest.Manifest, error) {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	if cfg.Stage != "" {
		m.Stage = cfg.Stage
	}
	if cfg.Region != "" {
		m.Region = cfg.Region
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// loadSigningKeys loads the account and module keypairs. Missing seed files
// are a key error; the message points at the generating command.
func loadSigningKeys(cfg config.Config) (account, module *keys.KeyPair, err error) {
	account, err = keys.Load(cfg.AccountSeedPath())
	if err != nil {
		return nil, nil, fmt.Errorf("account key: %w (run `waskit keys-account` first)", err)
	}
	module, err = keys.Load(cfg.ModuleSeedPath())
	if err != nil {
		return nil, nil, fmt.Errorf("module key: %w (run `waskit keys-module` first)", err)
	}
	return account, module, nil
}

// moduleName resolves the module name from the config, falling back to the
// manifest when the config does not set one.
func moduleName(cfg config.Config) (string, error) {
	if cfg.Name != "" {
		return cfg.Name, nil
	}
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return "", fmt.Errorf("no name configured and manifest unreadable: %w", err)
	}
	if m.Name == "" {
		return "", fmt.Errorf("no module name in config or manifest")
	}
	return m.Name, nil
}

func toCapabilities(caps []string) []waskit.Capability {
	out := make([]waskit.Capability, len(caps))
	for i, c := range caps {
		out[i] = waskit.Capability(c)
	}
	return out
}

// artifactPath resolves the signed artifact for a deployment: the manifest's
// artifact field relative to the manifest file, or the configured signed
// output path when the manifest does not name one.
func artifactPath(cfg config.Config, m *manifest.Manifest) string {
	if m.Artifact == "" {
		return cfg.SignedPath(m.Name)
	}
	if filepath.IsAbs(m.Artifact) {
		return m.Artifact
	}
	return filepath.Join(filepath.Dir(cfg.Manifest), m.Artifact)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func errStrings(errs ...error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
