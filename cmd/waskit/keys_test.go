package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/keys"
)

func TestRunKeysGeneratesSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "account.nk")

	if err := runKeys(waskit.KeyRoleAccount, path); err != nil {
		t.Fatalf("runKeys: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("seed file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "SA") {
		t.Errorf("account seed = %q, want SA prefix", string(data))
	}
}

func TestRunKeysKeepsExistingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.nk")

	if err := runKeys(waskit.KeyRoleModule, path); err != nil {
		t.Fatalf("first runKeys: %v", err)
	}
	first, err := keys.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := runKeys(waskit.KeyRoleModule, path); err != nil {
		t.Fatalf("second runKeys: %v", err)
	}
	second, err := keys.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if first.PublicKey() != second.PublicKey() {
		t.Error("rerunning key generation replaced the existing key")
	}
}

func TestNewKeysCommands(t *testing.T) {
	for _, cmd := range []string{"keys-account", "keys-module"} {
		c := newKeysAccountCmd()
		if cmd == "keys-module" {
			c = newKeysModuleCmd()
		}
		if c.Use != cmd {
			t.Errorf("Use = %q, want %q", c.Use, cmd)
		}
		if c.Flags().Lookup("key-dir") == nil {
			t.Errorf("%s: missing --key-dir flag", cmd)
		}
	}
}
