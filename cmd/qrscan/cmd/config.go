package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				file = args[0]
			}
			if _, err := os.Stat(file); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", file)
			}
			if err := config.GenerateDefaultConfigFile(file); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", file)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if used := a.v.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "# config file: %s\n", used)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
