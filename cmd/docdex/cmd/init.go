package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/configs"
	"github.com/docdex/docdex/internal/output"
)

// configFileName is the project configuration file created by init.
const configFileName = ".docdex.yaml"

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .docdex.yaml configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false,
		"Overwrite an existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	if _, err := os.Stat(configFileName); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configFileName)
	}

	if err := os.WriteFile(configFileName, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFileName, err)
	}

	output.New(cmd.OutOrStdout()).Successf("created %s", configFileName)
	return nil
}
