package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/azure-publisher/internal/config"
	"github.com/oshokin/azure-publisher/internal/logger"
	"github.com/oshokin/azure-publisher/internal/output"
	"github.com/oshokin/azure-publisher/internal/service/publisher"
	"github.com/oshokin/azure-publisher/internal/storage/memory"
	"github.com/oshokin/azure-publisher/internal/version"
)

// envGitHubOutput names the output file of the current GitHub Actions step.
const envGitHubOutput = "GITHUB_OUTPUT"

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// dryRun publishes into an in-memory store instead of Azure.
	dryRun bool
	// flagValues receives every configuration flag.
	flagValues config.Config

	// rootCmd represents the base command for publishing build artifacts.
	rootCmd = &cobra.Command{
		Use:   "azure-publisher",
		Short: "Publish mobile build artifacts to Azure Blob Storage",
		Long: "Upload packages, bundles, symbols and mapping files to an Azure blob container,\n" +
			"render the over-the-air install manifest and landing page, and export the public URLs.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig(configPath, cmd.Flags(), &flagValues, os.Getenv)
			if err != nil {
				return err
			}

			if err = applyLogLevel(cfg.LogLevel); err != nil {
				return err
			}

			options := &publisher.Options{
				Config:  cfg,
				Outputs: newOutputs(cfg, dryRun),
			}

			var store *memory.Store
			if dryRun {
				store = memory.New()
				options.Storage = store
			}

			if _, err = publisher.Run(ctx, options); err != nil {
				return err
			}

			if store != nil {
				logger.InfoKV(ctx, "Dry run finished, nothing was sent to Azure", "blobs", store.Blobs())
			}

			return nil
		},
	}
)

// Execute runs the azure-publisher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	attachInitCommand(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, overrides it with the flags set on
// the command line and fills the remaining gaps from the environment.
func loadConfig(path string, flags *pflag.FlagSet, values *config.Config, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(cfg, values)
		}
	})

	config.ApplyEnv(cfg, getenv)

	if cfg.Outputs.EnvFile == "" {
		cfg.Outputs.EnvFile = getenv(envGitHubOutput)
	}

	return cfg, nil
}

// applyLogLevel switches the shared logger to level.
func applyLogLevel(level string) error {
	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

// newOutputs builds the output publishers selected by cfg. The log is always
// included; a dry run only logs.
func newOutputs(cfg *config.Config, dryRun bool) output.Publisher {
	publishers := output.Multi{output.Log{}}
	if dryRun {
		return publishers
	}

	if cfg.Outputs.EnvFile != "" {
		publishers = append(publishers, output.NewEnvFile(cfg.Outputs.EnvFile))
	}

	if cfg.Outputs.YAMLFile != "" {
		publishers = append(publishers, output.NewYAMLFile(cfg.Outputs.YAMLFile))
	}

	return publishers
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file")
	flags.BoolVar(&dryRun, "dry-run", false, "publish into memory and print the resulting blobs")

	bindConfigFlags(flags, &flagValues)
}

// bindConfigFlags registers one flag per configuration field, writing into values.
func bindConfigFlags(flags *pflag.FlagSet, values *config.Config) {
	// Storage.
	flags.StringVar(&values.AccountName, "account-name", "", "Azure storage account (env "+config.EnvAccountName+")")
	flags.StringVar(&values.AccessKey, "access-key", "", "Azure storage access key (env "+config.EnvAccessKey+")")
	flags.StringVar(&values.Container, "container", "", "Azure blob container (env "+config.EnvContainer+")")
	flags.StringVar(&values.Path, "path", "", "destination path inside the container")
	flags.StringVar(&values.Endpoint, "endpoint", "", "custom blob endpoint, e.g. Azurite")
	flags.IntVar(&values.ChunkSize, "chunk-size", 0, "block size in bytes, at most 100 MiB (default 4 MiB)")
	flags.DurationVar(&values.Timeout, "timeout", 0, "timeout of a single storage request, block body included (default 5m)")
	flags.BoolVar(&values.ResetConnections, "reset-connections", false, "drop idle connections before each commit")
	flags.StringVar(&values.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	// Artifacts.
	flags.StringVar(&values.Artifacts.Package, "package", "", "path of the Android package")
	flags.StringVar(&values.Artifacts.Mapping, "mapping", "", "path of the mapping file of the package")
	flags.StringVar(&values.Artifacts.IPA, "ipa", "", "path of the iOS application bundle")
	flags.StringVar(&values.Artifacts.DSYM, "dsym", "", "path of the symbol archive of the bundle")
	flags.StringVar(&values.Artifacts.PlistTemplate, "plist-template", "", "install manifest template")
	flags.StringVar(&values.Artifacts.HTMLTemplate, "html-template", "", "landing page template")
	flags.StringVar(&values.Artifacts.BundleID, "bundle-id", "", "bundle identifier written into the manifest")
	flags.StringVar(&values.Artifacts.BundleVersion, "bundle-version", "", "bundle version written into the manifest")
	flags.StringVar(&values.Artifacts.Title, "title", "", "title written into the manifest")

	// Outputs.
	flags.StringVar(&values.Outputs.EnvFile, "env-file", "", "file receiving KEY=value lines (default $"+envGitHubOutput+")")
	flags.StringVar(&values.Outputs.YAMLFile, "outputs-file", "", "YAML file receiving the published URLs")
}
