package cmd

import (
	"bufio"
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/config"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage provider API keys in the OS keychain",
}

var keySetCmd = &cobra.Command{
	Use:   "set <provider> [key]",
	Short: "Store an API key; reads it from stdin when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := keyProvider(args[0])
		if err != nil {
			return err
		}
		var key string
		if len(args) == 2 {
			key = args[1]
		} else {
			pterm.Print("API key for " + provider + ": ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return err
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return &config.ConfigurationError{Field: "key", Message: "empty API key"}
		}

		store, err := config.OpenKeyring()
		if err != nil {
			return err
		}
		if err := store.Set(provider, key); err != nil {
			return err
		}
		pterm.Success.Println("stored " + provider + " key in the keychain")
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := keyProvider(args[0])
		if err != nil {
			return err
		}
		store, err := config.OpenKeyring()
		if err != nil {
			return err
		}
		if err := store.Delete(provider); err != nil {
			if errors.Is(err, config.ErrSecretNotFound) {
				pterm.Warning.Println("no key stored for " + provider)
				return nil
			}
			return err
		}
		pterm.Success.Println("removed " + provider + " key")
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
}

func keyProvider(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(config.ProviderNames, name) || !config.NeedsAPIKey(name) {
		return "", &config.ConfigurationError{
			Field:   "provider",
			Message: name + " does not use an API key",
			Hint:    "one of openai, anthropic, gemini, groq",
		}
	}
	return name, nil
}
