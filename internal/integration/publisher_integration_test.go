package integration

import (
	"context"
	"crypto/md5" //nolint:gosec // Blob Storage integrity headers are MD5 by protocol.
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/azure-publisher/internal/config"
	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/output"
	"github.com/oshokin/azure-publisher/internal/render"
	"github.com/oshokin/azure-publisher/internal/service/publisher"
	"github.com/oshokin/azure-publisher/internal/storage/azure/azuretest"
)

const bundleContent = "ipa-payload-0123456789abcdef"

// release writes the artifacts of an iOS release and returns a config targeting srv.
func release(t *testing.T, srv *azuretest.Server) *config.Config {
	t.Helper()

	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		return path
	}

	return &config.Config{
		AccountName: azuretest.Account,
		AccessKey:   azuretest.Key,
		Container:   "builds",
		Path:        "/releases/42/",
		Endpoint:    srv.Endpoint(),
		ChunkSize:   8,
		Outputs: config.Outputs{
			EnvFile:  filepath.Join(dir, "github_output"),
			YAMLFile: filepath.Join(dir, "outputs.yaml"),
		},
		Artifacts: config.Artifacts{
			IPA:           write("App.ipa", bundleContent),
			DSYM:          write("App.app.dSYM.zip", "dsym"),
			PlistTemplate: write("manifest.plist", `<string>{{ .url }}</string><string>{{ .bundle_id }}</string>`+"<string>{{ .bundle_version }}</string><string>{{ .title }}</string>"),
			HTMLTemplate:  write("index.html", `<a href="{{ .url }}">{{ .link }}</a>`),
			BundleID:      "com.example.app",
			BundleVersion: "4.2",
			Title:         "Example",
		},
	}
}

// newOutputs mirrors the CLI: log, env file and YAML file.
func newOutputs(cfg *config.Config) output.Publisher {
	return output.Multi{
		output.Log{},
		output.NewEnvFile(cfg.Outputs.EnvFile),
		output.NewYAMLFile(cfg.Outputs.YAMLFile),
	}
}

// TestPublisher_EndToEnd publishes a release through the Azure SDK against a fake endpoint.
func TestPublisher_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := azuretest.NewServer()
	defer srv.Close()

	cfg := release(t, srv)

	result, err := publisher.Run(context.Background(), &publisher.Options{Config: cfg, Outputs: newOutputs(cfg)})
	require.NoError(t, err)
	require.Equal(t, publisher.StateDone, result.State)

	base := srv.Endpoint() + "/builds/releases/42/"
	require.Equal(t, []artifact.PublishedURL{
		{Kind: artifact.KindBundle, URL: base + "App.ipa"},
		{Kind: artifact.KindSymbols, URL: base + "App.app.dSYM.zip"},
		{Kind: artifact.KindManifest, URL: base + "App.plist"},
		{Kind: artifact.KindLandingPage, URL: base + "App.html"},
	}, result.Published)

	// The bundle was staged in 8-byte blocks and committed in order.
	var ops []string

	for _, r := range srv.Requests() {
		if r.Path == "builds/releases/42/App.ipa" {
			ops = append(ops, r.Op)

			if r.Op == "blocklist" {
				require.Equal(t, []string{"00000", "00001", "00002", "00003"}, r.BlockIDs)
			}
		}
	}

	require.Equal(t, []string{"block", "block", "block", "block", "blocklist"}, ops)

	bundle := srv.Blob("builds/releases/42/App.ipa")
	require.NotNil(t, bundle)
	require.Equal(t, bundleContent, string(bundle.Data))
	require.Equal(t, "application/octet-stream", bundle.ContentType)

	sum := md5.Sum([]byte(bundleContent)) //nolint:gosec // See import.
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), bundle.ContentMD5)

	manifest := srv.Blob("builds/releases/42/App.plist")
	require.NotNil(t, manifest)
	require.Equal(t, publisher.ManifestContentType, manifest.ContentType)
	require.Contains(t, string(manifest.Data), "<string>"+base+"App.ipa</string>")
	require.Contains(t, string(manifest.Data), "<string>4.2</string>")

	page := srv.Blob("builds/releases/42/App.html")
	require.NotNil(t, page)
	require.Contains(t, string(page.Data), render.InstallURL(base+"App.plist"))

	// Every output surface received the same URLs.
	envFile, err := os.ReadFile(cfg.Outputs.EnvFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(envFile)), "\n")
	require.Equal(t, []string{
		output.KeyBundle + "=" + base + "App.ipa",
		output.KeySymbols + "=" + base + "App.app.dSYM.zip",
		output.KeyManifest + "=" + base + "App.plist",
		output.KeyLandingPage + "=" + base + "App.html",
	}, lines)

	stored, err := output.NewYAMLFile(cfg.Outputs.YAMLFile).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, result.Outputs, stored)
}

// TestPublisher_CommitFailure aborts without a visible blob or outputs.
func TestPublisher_CommitFailure(t *testing.T) {
	t.Parallel()

	srv := azuretest.NewServer()
	defer srv.Close()

	srv.FailOp = "blocklist"

	cfg := release(t, srv)

	result, err := publisher.Run(context.Background(), &publisher.Options{Config: cfg, Outputs: newOutputs(cfg)})
	require.ErrorIs(t, err, artifact.ErrTransport)
	require.Equal(t, publisher.StateAborted, result.State)
	require.Equal(t, publisher.StateUploadingPrimary, result.FailedState)
	require.Empty(t, result.Published)
	require.Nil(t, srv.Blob("builds/releases/42/App.ipa"))

	_, err = os.Stat(cfg.Outputs.EnvFile)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPublisher_Rerun overwrites the blobs of a previous run.
func TestPublisher_Rerun(t *testing.T) {
	t.Parallel()

	srv := azuretest.NewServer()
	defer srv.Close()

	cfg := release(t, srv)

	_, err := publisher.Run(context.Background(), &publisher.Options{Config: cfg, Outputs: output.Log{}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.Artifacts.IPA, []byte("rebuilt"), 0o600))

	_, err = publisher.Run(context.Background(), &publisher.Options{Config: cfg, Outputs: output.Log{}})
	require.NoError(t, err)
	require.Equal(t, "rebuilt", string(srv.Blob("builds/releases/42/App.ipa").Data))
}
