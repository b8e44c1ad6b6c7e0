package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/config"
	"github.com/waskit/waskit/internal/keys"
)

func newKeysAccountCmd() *cobra.Command {
	var keyDir string

	cmd := &cobra.Command{
		Use:   "keys-account",
		Short: "Generate or show the account signing key",
		Long: `Generate an account keypair and write its seed to the key directory.

If the seed file already exists the existing key is kept and its public key
is printed; generation never overwrites a key.

The seed file is plain text. Protect the key directory accordingly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if keyDir != "" {
					c.KeyDir = keyDir
				}
			})
			if err != nil {
				return err
			}
			return runKeys(waskit.KeyRoleAccount, cfg.AccountSeedPath())
		},
	}

	cmd.Flags().StringVar(&keyDir, "key-dir", "", "Key directory (default: from config)")

	return cmd
}

func newKeysModuleCmd() *cobra.Command {
	var keyDir string

	cmd := &cobra.Command{
		Use:   "keys-module",
		Short: "Generate or show the module signing key",
		Long: `Generate a module keypair and write its seed to the key directory.

If the seed file already exists the existing key is kept and its public key
is printed; generation never overwrites a key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if keyDir != "" {
					c.KeyDir = keyDir
				}
			})
			if err != nil {
				return err
			}
			return runKeys(waskit.KeyRoleModule, cfg.ModuleSeedPath())
		},
	}

	cmd.Flags().StringVar(&keyDir, "key-dir", "", "Key directory (default: from config)")

	return cmd
}

func runKeys(role waskit.KeyRole, path string) error {
	kp, err := keys.Load(path)
	switch {
	case err == nil:
		logger.Debug("key already exists", "path", path)
	case errors.Is(err, waskit.ErrKeyNotFound):
		kp, err = keys.Generate(role)
		if err != nil {
			return err
		}
		if err := kp.Save(path); err != nil {
			return err
		}
		logger.Info("generated key", "role", role, "path", path)
	default:
		return err
	}

	fmt.Println(kp.PublicKey())
	return nil
}
