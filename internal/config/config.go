package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/storage/chunk"
)

// Config holds everything a publishing run needs.
type Config struct {
	// AccountName is the Azure storage account.
	AccountName string `yaml:"account_name"`
	// AccessKey is the base64 shared key of the account.
	AccessKey string `yaml:"access_key,omitempty"`
	// Container is the blob container receiving the artifacts.
	Container string `yaml:"container"`
	// Path is the destination prefix inside the container.
	Path string `yaml:"path"`
	// Endpoint overrides the public blob endpoint, e.g. for Azurite.
	Endpoint string `yaml:"endpoint,omitempty"`
	// ChunkSize is the block size of chunked uploads in bytes.
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// Timeout bounds a single storage request, including its body.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// ResetConnections drops idle connections between staging and commit.
	ResetConnections bool `yaml:"reset_connections,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// Outputs selects where published URLs are written.
	Outputs Outputs `yaml:"outputs,omitempty"`
	// Artifacts lists the files of the run and the manifest metadata.
	Artifacts Artifacts `yaml:"artifacts,omitempty"`
}

// Outputs selects the output surfaces besides the log.
type Outputs struct {
	// EnvFile receives KEY=value lines, e.g. the path in $GITHUB_OUTPUT.
	EnvFile string `yaml:"env_file,omitempty"`
	// YAMLFile receives a YAML document with every URL.
	YAMLFile string `yaml:"yaml_file,omitempty"`
}

// Artifacts lists the local files of a run.
type Artifacts struct {
	Package       string `yaml:"package,omitempty"`
	Mapping       string `yaml:"mapping,omitempty"`
	IPA           string `yaml:"ipa,omitempty"`
	DSYM          string `yaml:"dsym,omitempty"`
	PlistTemplate string `yaml:"plist_template,omitempty"`
	HTMLTemplate  string `yaml:"html_template,omitempty"`
	BundleID      string `yaml:"bundle_id,omitempty"`
	BundleVersion string `yaml:"bundle_version,omitempty"`
	Title         string `yaml:"title,omitempty"`
}

const (
	// DefaultConfigFilename is the starter file written by the init command.
	DefaultConfigFilename = "azure-publisher.yaml"

	// DefaultTimeout bounds a single storage request.
	DefaultTimeout = 5 * time.Minute

	// MaxChunkSize is the largest accepted block. Every block is one request
	// bounded by Timeout, so a block must upload well within it.
	MaxChunkSize int64 = 100 << 20

	// DefaultFilePermissions is used for the config file, which may hold a key.
	DefaultFilePermissions = 0o600
)

// Environment variables consulted when a value is not configured.
const (
	EnvAccountName = "AZURE_ACCOUNT_NAME"
	EnvAccessKey   = "AZURE_ACCESS_KEY"
	EnvContainer   = "AZURE_CONTAINER"
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from path. An empty path yields an empty Config.
// The result is not validated: flags and environment may still fill it in.
func Load(path string) (*Config, error) {
	if path == "" {
		return new(Config), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv fills empty credentials and container from the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	fill := func(field *string, name string) {
		if *field == "" {
			*field = getenv(name)
		}
	}

	fill(&cfg.AccountName, EnvAccountName)
	fill(&cfg.AccessKey, EnvAccessKey)
	fill(&cfg.Container, EnvContainer)
}

// Set converts the artifact section into the domain input set.
func (c *Config) Set() artifact.Set {
	return artifact.Set{
		Package:             c.Artifacts.Package,
		Mapping:             c.Artifacts.Mapping,
		Bundle:              c.Artifacts.IPA,
		Symbols:             c.Artifacts.DSYM,
		ManifestTemplate:    c.Artifacts.PlistTemplate,
		LandingPageTemplate: c.Artifacts.HTMLTemplate,
		BundleID:            c.Artifacts.BundleID,
		BundleVersion:       c.Artifacts.BundleVersion,
		Title:               c.Artifacts.Title,
	}
}

// Validate checks required fields and applies defaults. Every returned error
// wraps artifact.ErrConfiguration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: %w", artifact.ErrConfiguration, errConfigIsNotSet)
	}

	required := []struct {
		value, hint string
	}{
		{cfg.AccountName, "no Azure account name given, pass it with --account-name or " + EnvAccountName},
		{cfg.AccessKey, "no Azure access key given, pass it with --access-key or " + EnvAccessKey},
		{cfg.Container, "no Azure container given, pass it with --container or " + EnvContainer},
		{cfg.Path, "no destination path given, pass it with --path"},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", artifact.ErrConfiguration, r.hint)
		}
	}

	if _, err := base64.StdEncoding.DecodeString(cfg.AccessKey); err != nil {
		return fmt.Errorf("%w: access key is not valid base64: %w", artifact.ErrConfiguration, err)
	}

	if err := validateArtifacts(&cfg.Artifacts); err != nil {
		return err
	}

	if cfg.ChunkSize < 0 || int64(cfg.ChunkSize) > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d is outside 1..%d", artifact.ErrConfiguration, cfg.ChunkSize, MaxChunkSize)
	}

	// Set defaults if not specified.
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunk.DefaultSize
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}

// validateArtifacts checks the presence rules between artifacts and metadata.
func validateArtifacts(a *Artifacts) error {
	if a.Package == "" && a.IPA == "" {
		return fmt.Errorf("%w: no package or ipa given, pass one with --package or --ipa", artifact.ErrConfiguration)
	}

	if a.PlistTemplate == "" {
		return nil
	}

	metadata := []struct {
		value, hint string
	}{
		{a.BundleID, "plist template requires bundle id, pass it with --bundle-id"},
		{a.BundleVersion, "plist template requires bundle version, pass it with --bundle-version"},
		{a.Title, "plist template requires title, pass it with --title"},
	}

	for _, m := range metadata {
		if m.value == "" {
			return fmt.Errorf("%w: %s", artifact.ErrConfiguration, m.hint)
		}
	}

	return nil
}
