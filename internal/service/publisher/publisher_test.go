package publisher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/azure-publisher/internal/config"
	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/output"
	"github.com/oshokin/azure-publisher/internal/render"
	"github.com/oshokin/azure-publisher/internal/storage/memory"
)

const (
	testContainer = "bucket"
	testBaseURL   = "https://acct.blob.core.windows.net/bucket/releases/v1/"

	manifestTemplate = `<plist><string>{{ .url }}</string><string>{{ .bundle_id }}</string>` +
		`<string>{{ .bundle_version }}</string><string>{{ .title }}</string></plist>`
	landingPageTemplate = `<a href="{{ .url }}">Install</a> <a href="{{ .link }}">Manifest</a>`
)

var errBoom = errors.New("boom")

// recorder captures published outputs.
type recorder struct {
	calls   int
	outputs *output.Outputs
	err     error
}

func (r *recorder) Publish(_ context.Context, outputs *output.Outputs) error {
	r.calls++
	r.outputs = outputs

	return r.err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func baseConfig() *config.Config {
	return &config.Config{
		AccountName: "acct",
		AccessKey:   "c2VjcmV0",
		Container:   testContainer,
		Path:        "/releases/v1",
		ChunkSize:   4,
	}
}

// iosConfig describes a full iOS release: bundle, symbols, manifest and landing page.
func iosConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	cfg := baseConfig()
	cfg.Artifacts = config.Artifacts{
		IPA:           writeFile(t, dir, "app.ipa", []byte("ipa-bytes-0123456789")),
		DSYM:          writeFile(t, dir, "app.dSYM.zip", []byte("symbols")),
		PlistTemplate: writeFile(t, dir, "manifest.plist", []byte(manifestTemplate)),
		HTMLTemplate:  writeFile(t, dir, "index.html", []byte(landingPageTemplate)),
		BundleID:      "com.example.app",
		BundleVersion: "1.2.3",
		Title:         "Example",
	}

	return cfg
}

// TestRun_PackageOnly uploads exactly one artifact and publishes exactly one key.
func TestRun_PackageOnly(t *testing.T) {
	t.Parallel()

	store := memory.New()
	out := new(recorder)

	cfg := baseConfig()
	cfg.Artifacts.Package = writeFile(t, t.TempDir(), "app.apk", []byte("android package"))

	result, err := Run(context.Background(), &Options{Config: cfg, Storage: store, Outputs: out})
	require.NoError(t, err)
	require.Equal(t, StateDone, result.State)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, []artifact.PublishedURL{
		{Kind: artifact.KindPackage, URL: testBaseURL + "app.apk"},
	}, result.Published)

	require.Equal(t, 1, out.calls)
	require.Equal(t, 1, out.outputs.Len())
	require.Equal(t, testBaseURL+"app.apk", out.outputs.Package)

	require.Equal(t, []string{"bucket/releases/v1/app.apk"}, store.Blobs())

	obj, err := store.Blob(testContainer, "releases/v1/app.apk")
	require.NoError(t, err)
	require.Equal(t, []byte("android package"), obj.Data)
	require.Equal(t, "application/vnd.android.package-archive", obj.ContentType)
}

// TestRun_ValidationAbortsBeforeNetwork covers a manifest template without bundle version.
func TestRun_ValidationAbortsBeforeNetwork(t *testing.T) {
	t.Parallel()

	store := memory.New()
	out := new(recorder)

	cfg := iosConfig(t)
	cfg.Artifacts.BundleVersion = ""

	result, err := Run(context.Background(), &Options{Config: cfg, Storage: store, Outputs: out})
	require.ErrorIs(t, err, artifact.ErrConfiguration)
	require.Equal(t, StateAborted, result.State)
	require.Equal(t, StateValidating, result.FailedState)
	require.Empty(t, result.Published)
	require.Empty(t, store.Calls())
	require.Zero(t, out.calls)

	result, err = Run(context.Background(), nil)
	require.ErrorIs(t, err, artifact.ErrConfiguration)
	require.Equal(t, StateAborted, result.State)
}

// TestRun_FullIOSRelease publishes bundle, symbols, manifest and landing page in order.
func TestRun_FullIOSRelease(t *testing.T) {
	t.Parallel()

	store := memory.New()
	out := new(recorder)

	result, err := Run(context.Background(), &Options{Config: iosConfig(t), Storage: store, Outputs: out})
	require.NoError(t, err)
	require.Equal(t, StateDone, result.State)

	bundleURL := testBaseURL + "app.ipa"
	manifestURL := testBaseURL + "app.plist"

	require.Equal(t, []artifact.PublishedURL{
		{Kind: artifact.KindBundle, URL: bundleURL},
		{Kind: artifact.KindSymbols, URL: testBaseURL + "app.dSYM.zip"},
		{Kind: artifact.KindManifest, URL: manifestURL},
		{Kind: artifact.KindLandingPage, URL: testBaseURL + "app.html"},
	}, result.Published)

	manifest, err := store.Blob(testContainer, "releases/v1/app.plist")
	require.NoError(t, err)
	require.Equal(t, ManifestContentType, manifest.ContentType)
	require.Equal(t,
		"<plist><string>"+bundleURL+"</string><string>com.example.app</string>"+
			"<string>1.2.3</string><string>Example</string></plist>",
		string(manifest.Data))

	page, err := store.Blob(testContainer, "releases/v1/app.html")
	require.NoError(t, err)
	require.Equal(t, LandingPageContentType, page.ContentType)
	require.Contains(t, string(page.Data), render.InstallURL(manifestURL))
	require.Contains(t, string(page.Data), `href="`+manifestURL+`"`)

	bundle, err := store.Blob(testContainer, "releases/v1/app.ipa")
	require.NoError(t, err)
	require.Equal(t, []byte("ipa-bytes-0123456789"), bundle.Data)

	// Documents are written directly; artifacts go through staged blocks.
	var writes int

	for _, call := range store.Calls() {
		if call.Op == memory.OpWrite {
			writes++

			require.True(t, strings.HasSuffix(call.Blob, ".plist") || strings.HasSuffix(call.Blob, ".html"))
		}
	}

	require.Equal(t, 2, writes)

	require.Equal(t, 1, out.calls)
	require.Equal(t, 4, out.outputs.Len())
	require.Equal(t, manifestURL, out.outputs.Manifest)
}

// TestRun_OrphanSecondaryIsSkipped ignores a mapping file without a package.
func TestRun_OrphanSecondaryIsSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := memory.New()

	cfg := baseConfig()
	cfg.Artifacts.IPA = writeFile(t, dir, "app.ipa", []byte("ipa"))
	cfg.Artifacts.Mapping = writeFile(t, dir, "mapping.txt", []byte("mapping"))

	result, err := Run(context.Background(), &Options{Config: cfg, Storage: store})
	require.NoError(t, err)
	require.Equal(t, StateDone, result.State)
	require.Len(t, result.Published, 1)
	require.Equal(t, artifact.KindBundle, result.Published[0].Kind)
	require.Equal(t, []string{"bucket/releases/v1/app.ipa"}, store.Blobs())
}

// TestRun_PackageWithMapping uploads the mapping after the package.
func TestRun_PackageWithMapping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := memory.New()

	cfg := baseConfig()
	cfg.Artifacts.Package = writeFile(t, dir, "app.apk", []byte("apk"))
	cfg.Artifacts.Mapping = writeFile(t, dir, "mapping.txt", []byte("mapping"))
	// A manifest only applies to application bundles.
	cfg.Artifacts.PlistTemplate = writeFile(t, dir, "manifest.plist", []byte(manifestTemplate))
	cfg.Artifacts.BundleID = "com.example.app"
	cfg.Artifacts.BundleVersion = "1.0"
	cfg.Artifacts.Title = "Example"

	result, err := Run(context.Background(), &Options{Config: cfg, Storage: store})
	require.NoError(t, err)
	require.Equal(t, []artifact.PublishedURL{
		{Kind: artifact.KindPackage, URL: testBaseURL + "app.apk"},
		{Kind: artifact.KindMapping, URL: testBaseURL + "mapping.txt"},
	}, result.Published)
	require.Equal(t, testBaseURL+"mapping.txt", result.Outputs.Mapping)
	require.Empty(t, result.Outputs.Manifest)
}

// TestRun_TransportFailureAborts stops at the failing state and keeps prior blobs.
func TestRun_TransportFailureAborts(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.FailOn = func(call memory.Call) error {
		if call.Op == memory.OpStage && strings.HasSuffix(call.Blob, ".dSYM.zip") {
			return errBoom
		}

		return nil
	}

	out := new(recorder)

	result, err := Run(context.Background(), &Options{Config: iosConfig(t), Storage: store, Outputs: out})
	require.ErrorIs(t, err, artifact.ErrTransport)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, StateAborted, result.State)
	require.Equal(t, StateUploadingSecondary, result.FailedState)
	require.Len(t, result.Published, 1)

	// The bundle stays committed; nothing downstream ran.
	require.Equal(t, []string{"bucket/releases/v1/app.ipa"}, store.Blobs())
	require.Zero(t, out.calls)

	for _, call := range store.Calls() {
		require.NotEqual(t, memory.OpWrite, call.Op)
	}
}

// TestRun_ManifestWriteFailure aborts in the manifest upload state.
func TestRun_ManifestWriteFailure(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.FailOn = func(call memory.Call) error {
		if call.Op == memory.OpWrite {
			return errBoom
		}

		return nil
	}

	result, err := Run(context.Background(), &Options{Config: iosConfig(t), Storage: store})
	require.ErrorIs(t, err, artifact.ErrTransport)
	require.Equal(t, StateUploadingManifest, result.FailedState)
	require.Len(t, result.Published, 2)
}

// TestRun_MissingFile reports an IO error and commits nothing.
func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	store := memory.New()

	cfg := baseConfig()
	cfg.Artifacts.Package = filepath.Join(t.TempDir(), "missing.apk")

	result, err := Run(context.Background(), &Options{Config: cfg, Storage: store})
	require.ErrorIs(t, err, artifact.ErrIO)
	require.Equal(t, StateUploadingPrimary, result.FailedState)
	require.Empty(t, store.Calls())
}

// TestRun_BadTemplateAbortsBeforeNetwork rejects unusable templates while validating.
func TestRun_BadTemplateAbortsBeforeNetwork(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	mutations := map[string]func(*config.Config){
		"unknown manifest placeholder": func(c *config.Config) {
			c.Artifacts.PlistTemplate = writeFile(t, dir, "typo.plist", []byte("{{ .bundle_idd }}"))
		},
		"unknown landing page placeholder": func(c *config.Config) {
			c.Artifacts.HTMLTemplate = writeFile(t, dir, "bad.html", []byte("{{ .unknown }}"))
		},
		"missing manifest file": func(c *config.Config) {
			c.Artifacts.PlistTemplate = filepath.Join(dir, "missing.plist")
		},
		"empty landing page file": func(c *config.Config) {
			c.Artifacts.HTMLTemplate = writeFile(t, dir, "empty.html", nil)
		},
	}

	for name, mutate := range mutations {
		cfg := iosConfig(t)
		mutate(cfg)

		store := memory.New()
		out := new(recorder)

		result, err := Run(context.Background(), &Options{Config: cfg, Storage: store, Outputs: out})
		require.ErrorIs(t, err, artifact.ErrConfiguration, name)
		require.Equal(t, StateAborted, result.State, name)
		require.Equal(t, StateValidating, result.FailedState, name)
		require.Empty(t, result.Published, name)
		require.Empty(t, store.Calls(), name)
		require.Zero(t, out.calls, name)
	}
}

// TestRun_OutputFailure aborts in the last state with every URL recorded.
func TestRun_OutputFailure(t *testing.T) {
	t.Parallel()

	out := &recorder{err: errBoom}

	result, err := Run(context.Background(), &Options{Config: iosConfig(t), Storage: memory.New(), Outputs: out})
	require.ErrorIs(t, err, artifact.ErrIO)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, StatePublishingOutputs, result.FailedState)
	require.Equal(t, 4, result.Outputs.Len())
}

// TestRun_Idempotent reruns the pipeline over the same store.
func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	store := memory.New()
	cfg := iosConfig(t)

	first, err := Run(context.Background(), &Options{Config: cfg, Storage: store})
	require.NoError(t, err)

	blobs := store.Blobs()

	second, err := Run(context.Background(), &Options{Config: cfg, Storage: store})
	require.NoError(t, err)
	require.Equal(t, first.Published, second.Published)
	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, blobs, store.Blobs())

	bundle, err := store.Blob(testContainer, "releases/v1/app.ipa")
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("ipa-bytes-0123456789"), bundle.Data))
}

// TestState_String names every state.
func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "validating", StateValidating.String())
	require.Equal(t, "uploading_landing_page", StateUploadingLandingPage.String())
	require.Equal(t, "aborted", StateAborted.String())
	require.Equal(t, "unknown", State(42).String())
	require.True(t, StateDone.Terminal())
	require.False(t, StatePublishingOutputs.Terminal())
}

// TestContentType covers artifact extensions and derived document names.
func TestContentType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "application/vnd.android.package-archive", contentType("build/app.APK"))
	require.Equal(t, "application/octet-stream", contentType("app.ipa"))
	require.Equal(t, "application/zip", contentType("app.dSYM.zip"))
	require.Equal(t, "application/octet-stream", contentType("LICENSE"))

	require.Equal(t, "app.plist", documentName("/out/app.ipa", ".plist"))
	require.Equal(t, "My App.html", documentName("My App.ipa", ".html"))
}
