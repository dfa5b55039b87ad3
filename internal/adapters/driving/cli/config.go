package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tasklift/internal/i18n"
	"github.com/custodia-labs/tasklift/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit tasklift configuration",
	Long: `View and edit ~/.tasklift/config.toml.

Examples:
  tasklift config get
  tasklift config set gemini.api_keys "key-one,key-two"
  tasklift config set microsoft.client_id 00000000-0000-0000-0000-000000000000
  tasklift config unset todo.list_id`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all configuration values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configService == nil {
			return errors.New("config service not configured")
		}
		cmd.Println(configService.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configService == nil {
		return errors.New("config service not configured")
	}

	keys := configService.Keys()
	if len(args) == 1 {
		keys = args
	}

	for _, key := range keys {
		value, ok := configService.Get(key)
		switch {
		case !ok:
			value = i18n.T("(not set)")
		case configService.IsSecret(key):
			value = logger.Mask(value)
		}
		cmd.Printf("%s = %s\n", key, value)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configService == nil {
		return errors.New("config service not configured")
	}
	if err := configService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Println(i18n.T("Set %s.", args[0]))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configService == nil {
		return errors.New("config service not configured")
	}
	if err := configService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Println(i18n.T("Removed %s.", args[0]))
	return nil
}
