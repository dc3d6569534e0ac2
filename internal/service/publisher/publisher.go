package publisher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oshokin/azure-publisher/internal/config"
	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/logger"
	"github.com/oshokin/azure-publisher/internal/output"
	"github.com/oshokin/azure-publisher/internal/render"
	"github.com/oshokin/azure-publisher/internal/service/common"
	"github.com/oshokin/azure-publisher/internal/storage/azure"
	"github.com/oshokin/azure-publisher/internal/storage/block"
	"github.com/oshokin/azure-publisher/internal/storage/location"
)

// Storage is the blob service used by a run.
type Storage interface {
	block.Service

	// WriteBlob stores data as a complete blob in one request.
	WriteBlob(ctx context.Context, container, blob string, data []byte, contentType string) error
}

// Options contains inputs for the publisher entry point.
type Options struct {
	// Config holds credentials, destination and artifacts. It is validated
	// and completed with defaults by Run.
	Config *config.Config
	// Storage replaces the Azure service, e.g. with an in-memory store.
	Storage Storage
	// Outputs receives the published URLs. Nil means logging only.
	Outputs output.Publisher
}

// Result describes a finished run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string
	// State is StateDone or StateAborted.
	State State
	// FailedState is the state that aborted the run. Meaningful only when aborted.
	FailedState State
	// Published lists the URLs recorded before the run ended, in upload order.
	Published []artifact.PublishedURL
	// Outputs is the registry built from Published.
	Outputs *output.Outputs
}

// errOptionsNotSet is returned when Run is called without options.
var errOptionsNotSet = errors.New("options are not set")

// pipeline carries the state of one run.
// It is unexported: callers should use Run, which encapsulates setup and validation.
type pipeline struct {
	cfg      *config.Config
	set      artifact.Set
	docs     templates
	storage  Storage
	uploader *block.Uploader
	resolver *location.Resolver
	outputs  output.Publisher
	result   *Result

	// bundleURL is set once the application bundle is committed.
	bundleURL string
	// manifest and manifestURL hold the rendered install manifest.
	manifest    string
	manifestURL string
	// landingPage holds the rendered landing page.
	landingPage string
}

// step binds a state to the action that runs in it.
type step struct {
	state State
	run   func(ctx context.Context) error
}

// Run executes the publishing pipeline. The returned Result is never nil:
// on failure it reports the aborted state and the URLs published so far.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	runID := uuid.NewString()

	ctx = logger.WithName(ctx, "publisher")
	ctx = logger.WithKV(ctx, "run_id", runID)

	if actor, err := common.DetectActor(); err != nil {
		logger.Warnf(ctx, "Could not detect who runs the publisher: %v", err)
	} else {
		ctx = logger.WithKV(ctx, "actor", actor.String())
	}

	result := &Result{
		RunID:       runID,
		State:       StateValidating,
		FailedState: StateValidating,
		Outputs:     new(output.Outputs),
	}

	p, err := newPipeline(ctx, opts, result)
	if err != nil {
		result.State = StateAborted

		logger.ErrorKV(ctx, "Publishing aborted", "state", StateValidating, "error", err)

		return result, err
	}

	if err = p.Run(ctx); err != nil {
		return result, fmt.Errorf("publisher failed: %w", err)
	}

	logger.InfoKV(ctx, "Publishing completed successfully", "urls", len(result.Published))

	return result, nil
}

// newPipeline validates the options and wires the storage collaborators.
// No network call happens here.
func newPipeline(ctx context.Context, opts *Options, result *Result) (*pipeline, error) {
	if opts == nil || opts.Config == nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrConfiguration, errOptionsNotSet)
	}

	cfg := opts.Config
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	set := cfg.Set()

	docs, err := loadTemplates(&set)
	if err != nil {
		return nil, err
	}

	storage := opts.Storage
	endpoint := cfg.Endpoint

	if storage == nil {
		service, newErr := azure.New(cfg.AccountName, cfg.AccessKey,
			azure.WithEndpoint(cfg.Endpoint),
			azure.WithTimeout(cfg.Timeout))
		if newErr != nil {
			return nil, fmt.Errorf("%w: %w", artifact.ErrConfiguration, newErr)
		}

		storage = service
		endpoint = service.Endpoint()
	}

	resolver, err := location.NewResolver(cfg.AccountName, cfg.Container, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrConfiguration, err)
	}

	outputs := opts.Outputs
	if outputs == nil {
		outputs = output.Log{}
	}

	logger.DebugKV(ctx, "Pipeline configured",
		"endpoint", resolver.Endpoint(),
		"container", cfg.Container,
		"path", cfg.Path,
		"chunk_size", cfg.ChunkSize)

	return &pipeline{
		cfg:     cfg,
		set:     set,
		docs:    docs,
		storage: storage,
		uploader: block.NewUploader(storage,
			block.WithChunkSize(cfg.ChunkSize),
			block.WithConnectionReset(cfg.ResetConnections)),
		resolver: resolver,
		outputs:  outputs,
		result:   result,
	}, nil
}

// Run walks the states in order and stops at the first failure.
func (p *pipeline) Run(ctx context.Context) error {
	steps := []step{
		{StateUploadingPrimary, p.uploadPrimary},
		{StateUploadingSecondary, p.uploadSecondary},
		{StateRenderingManifest, p.renderManifest},
		{StateUploadingManifest, p.uploadManifest},
		{StateRenderingLandingPage, p.renderLandingPage},
		{StateUploadingLandingPage, p.uploadLandingPage},
		{StatePublishingOutputs, p.publishOutputs},
	}

	for _, s := range steps {
		p.result.State = s.state

		logger.DebugKV(ctx, "Entering state", "state", s.state)

		if err := s.run(ctx); err != nil {
			p.result.FailedState = s.state
			p.result.State = StateAborted

			logger.ErrorKV(ctx, "Publishing aborted", "state", s.state, "error", err)

			return fmt.Errorf("%s: %w", s.state, err)
		}
	}

	p.result.State = StateDone

	return nil
}

// uploadPrimary uploads the package and the application bundle.
func (p *pipeline) uploadPrimary(ctx context.Context) error {
	if p.set.HasPackage() {
		if _, err := p.upload(ctx, artifact.KindPackage, p.set.Package); err != nil {
			return err
		}
	}

	if p.set.HasBundle() {
		publicURL, err := p.upload(ctx, artifact.KindBundle, p.set.Bundle)
		if err != nil {
			return err
		}

		p.bundleURL = publicURL
	}

	return nil
}

// uploadSecondary uploads the files attached to an uploaded primary artifact.
func (p *pipeline) uploadSecondary(ctx context.Context) error {
	secondaries := []struct {
		kind        artifact.Kind
		path        string
		parentFound bool
	}{
		{artifact.KindMapping, p.set.Mapping, p.set.HasPackage()},
		{artifact.KindSymbols, p.set.Symbols, p.set.HasBundle()},
	}

	for _, s := range secondaries {
		if s.path == "" {
			continue
		}

		if !s.parentFound {
			logger.WarnKV(ctx, "Skipping artifact without its primary", "kind", s.kind, "file", s.path)

			continue
		}

		if _, err := p.upload(ctx, s.kind, s.path); err != nil {
			return err
		}
	}

	return nil
}

// manifestEnabled reports whether the manifest states do any work.
func (p *pipeline) manifestEnabled() bool {
	return p.set.HasManifestTemplate() && p.bundleURL != ""
}

// landingPageEnabled reports whether the landing page states do any work.
func (p *pipeline) landingPageEnabled() bool {
	return p.manifestEnabled() && p.set.HasLandingPageTemplate()
}

func (p *pipeline) renderManifest(ctx context.Context) error {
	if !p.manifestEnabled() {
		if p.set.HasManifestTemplate() {
			logger.Warnf(ctx, "Manifest template %s ignored: no application bundle uploaded", p.set.ManifestTemplate)
		}

		return nil
	}

	values := render.ManifestValues{
		BundleURL:     p.bundleURL,
		BundleID:      p.set.BundleID,
		BundleVersion: p.set.BundleVersion,
		Title:         p.set.Title,
	}

	text, err := p.render(p.docs.manifest, values.Map())
	if err != nil {
		return err
	}

	p.manifest = text

	return nil
}

func (p *pipeline) uploadManifest(ctx context.Context) error {
	if !p.manifestEnabled() {
		return nil
	}

	publicURL, err := p.write(ctx, artifact.KindManifest,
		documentName(p.set.Bundle, ".plist"), p.manifest, ManifestContentType)
	if err != nil {
		return err
	}

	p.manifestURL = publicURL

	return nil
}

func (p *pipeline) renderLandingPage(_ context.Context) error {
	if !p.landingPageEnabled() {
		return nil
	}

	text, err := p.render(p.docs.landingPage, render.LandingPageValues(p.manifestURL))
	if err != nil {
		return err
	}

	p.landingPage = text

	return nil
}

func (p *pipeline) uploadLandingPage(ctx context.Context) error {
	if !p.landingPageEnabled() {
		return nil
	}

	_, err := p.write(ctx, artifact.KindLandingPage,
		documentName(p.set.Bundle, ".html"), p.landingPage, LandingPageContentType)

	return err
}

// publishOutputs hands every recorded URL to the output publishers.
func (p *pipeline) publishOutputs(ctx context.Context) error {
	p.result.Outputs = output.FromPublished(p.result.Published)

	if err := p.outputs.Publish(ctx, p.result.Outputs); err != nil {
		return fmt.Errorf("%w: publish outputs: %w", artifact.ErrIO, err)
	}

	return nil
}

// upload sends a local file as a chunked block blob and records its URL.
func (p *pipeline) upload(ctx context.Context, kind artifact.Kind, localPath string) (string, error) {
	remotePath, publicURL, err := p.resolver.Resolve(p.cfg.Path, filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", artifact.ErrConfiguration, localPath, err)
	}

	logger.InfoKV(ctx, "Uploading artifact", "kind", kind, "file", localPath, "remote_path", remotePath)

	err = p.uploader.Upload(ctx, block.Target{
		LocalPath:   localPath,
		Container:   p.resolver.Container(),
		Blob:        location.BlobName(remotePath),
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", err
	}

	p.record(ctx, kind, publicURL)

	return publicURL, nil
}

// write stores a rendered document as a blob in one request and records its URL.
func (p *pipeline) write(ctx context.Context, kind artifact.Kind, fileName, text, contentType string) (string, error) {
	remotePath, publicURL, err := p.resolver.Resolve(p.cfg.Path, fileName)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", artifact.ErrConfiguration, fileName, err)
	}

	logger.InfoKV(ctx, "Writing document", "kind", kind, "remote_path", remotePath)

	err = p.storage.WriteBlob(ctx, p.resolver.Container(), location.BlobName(remotePath), []byte(text), contentType)
	if err != nil {
		return "", fmt.Errorf("%w: write %s: %w", artifact.ErrTransport, remotePath, err)
	}

	p.record(ctx, kind, publicURL)

	return publicURL, nil
}

// render fills a template loaded during validation with values.
func (p *pipeline) render(doc *render.Document, values map[string]string) (string, error) {
	text, err := doc.Render(values)
	if err != nil {
		return "", fmt.Errorf("%w: %w", artifact.ErrConfiguration, err)
	}

	return text, nil
}

func (p *pipeline) record(ctx context.Context, kind artifact.Kind, publicURL string) {
	p.result.Published = append(p.result.Published, artifact.PublishedURL{Kind: kind, URL: publicURL})

	logger.InfoKV(ctx, "Published", "kind", kind, "url", publicURL)
}
