package commands

import (
	"fmt"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/config"
	"github.com/spf13/cobra"
)

// newCredentialsCmd creates the `shellclaw credentials` command tree for
// keyring and vault management.
func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored credentials (OS keyring or encrypted vault)",
		Long: `Store the Discord token and Gemini API key securely instead of
keeping them in the environment or a config file. Secrets go to the OS
keyring by default; --vault uses the encrypted vault file instead
(created on first use, protected by a master password).

Known credential names: ` + config.KeyDiscordToken + `, ` + config.KeyGeminiAPIKey + `

Examples:
  shellclaw credentials set discord_token
  shellclaw credentials set gemini_api_key --vault
  shellclaw credentials get discord_token
  shellclaw credentials delete gemini_api_key`,
	}

	cmd.AddCommand(
		newCredentialsSetCmd(),
		newCredentialsGetCmd(),
		newCredentialsDeleteCmd(),
	)
	cmd.PersistentFlags().Bool("vault", false, "use the encrypted vault instead of the OS keyring")
	return cmd
}

// unlockOrCreateVault opens the vault, creating it on first use.
func unlockOrCreateVault() (*config.Vault, error) {
	vault := config.NewVault(config.VaultFile)

	if !vault.Exists() {
		fmt.Println("No vault found; creating one at", vault.Path())
		password, err := config.ReadPassword("New vault password: ")
		if err != nil {
			return nil, err
		}
		confirm, err := config.ReadPassword("Confirm password: ")
		if err != nil {
			return nil, err
		}
		if password != confirm {
			return nil, fmt.Errorf("passwords do not match")
		}
		if err := vault.Create(password); err != nil {
			return nil, err
		}
		return vault, nil
	}

	password, err := config.ReadPassword("Vault password: ")
	if err != nil {
		return nil, err
	}
	if err := vault.Unlock(password); err != nil {
		return nil, err
	}
	return vault, nil
}

func newCredentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			value, err := config.ReadPassword(fmt.Sprintf("Value for %s: ", name))
			if err != nil {
				return err
			}
			if value == "" {
				return fmt.Errorf("empty value")
			}

			useVault, _ := cmd.Flags().GetBool("vault")
			if useVault {
				vault, err := unlockOrCreateVault()
				if err != nil {
					return err
				}
				defer vault.Lock()
				if err := vault.Set(name, value); err != nil {
					return err
				}
				fmt.Printf("Stored %s in the vault.\n", name)
				return nil
			}

			if !config.KeyringAvailable() {
				return fmt.Errorf("OS keyring unavailable; try --vault")
			}
			if err := config.StoreKeyring(name, value); err != nil {
				return err
			}
			fmt.Printf("Stored %s in the OS keyring.\n", name)
			return nil
		},
	}
}

func newCredentialsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Check whether a credential is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			useVault, _ := cmd.Flags().GetBool("vault")
			var value string
			if useVault {
				vault, err := unlockOrCreateVault()
				if err != nil {
					return err
				}
				defer vault.Lock()
				value, err = vault.Get(name)
				if err != nil {
					return err
				}
			} else {
				value = config.GetKeyring(name)
			}

			if value == "" {
				fmt.Printf("%s: not set\n", name)
				return nil
			}
			fmt.Printf("%s: %s\n", name, maskSecret(value))
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			useVault, _ := cmd.Flags().GetBool("vault")
			if useVault {
				vault, err := unlockOrCreateVault()
				if err != nil {
					return err
				}
				defer vault.Lock()
				if err := vault.Delete(name); err != nil {
					return err
				}
			} else if err := config.DeleteKeyring(name); err != nil {
				return err
			}

			fmt.Printf("Deleted %s.\n", name)
			return nil
		},
	}
}
