package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/azure-publisher/internal/config"
	"github.com/oshokin/azure-publisher/internal/storage/chunk"
)

// starterConfig is written by the init command. Credentials are left to the environment.
func starterConfig() *config.Config {
	return &config.Config{
		Container: "releases",
		Path:      "/builds/latest",
		ChunkSize: chunk.DefaultSize,
		Timeout:   config.DefaultTimeout,
		LogLevel:  "info",
		Artifacts: config.Artifacts{
			IPA:           "build/App.ipa",
			DSYM:          "build/App.app.dSYM.zip",
			PlistTemplate: "templates/manifest.plist",
			HTMLTemplate:  "templates/index.html",
			BundleID:      "com.example.app",
			BundleVersion: "1.0.0",
			Title:         "App",
		},
	}
}

// attachInitCommand attaches an `init` subcommand writing a starter configuration file.
func attachInitCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) > 0 {
				path = args[0]
			}

			if err := config.Save(path, starterConfig()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)

			return nil
		},
	}

	root.AddCommand(cmd)
}
