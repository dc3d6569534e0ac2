package block

import (
	"context"
	"crypto/md5" //nolint:gosec // Azure stores Content-MD5 for integrity checks, not for security.
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/logger"
	"github.com/oshokin/azure-publisher/internal/storage/chunk"
)

// Headers are the blob properties set together with the commit.
type Headers struct {
	// ContentType is served back to downloaders; empty leaves the service default.
	ContentType string
	// ContentMD5 is the digest of the whole blob content.
	ContentMD5 []byte
}

// Service is the part of the storage service the uploader needs.
type Service interface {
	// StageBlock stores data as an uncommitted block of container/blob.
	StageBlock(ctx context.Context, container, blob, id string, data []byte) error
	// CommitBlocks materializes the listed blocks, in order, as the blob content.
	CommitBlocks(ctx context.Context, container, blob string, ids []string, headers Headers) error
}

// idleCloser is implemented by services whose HTTP client can drop pooled connections.
type idleCloser interface {
	CloseIdleConnections()
}

// Target describes one file upload.
type Target struct {
	// LocalPath is the file to read.
	LocalPath string
	// Container is the remote container name.
	Container string
	// Blob is the remote blob name inside Container.
	Blob string
	// ContentType is stored on the committed blob.
	ContentType string
}

// Uploader stages and commits files one at a time.
// It is not safe for concurrent use: uploads share one storage connection pool.
type Uploader struct {
	// service is the storage backend.
	service Service
	// chunkSize is the number of bytes per staged block.
	chunkSize int
	// resetBeforeCommit drops idle connections between staging and commit.
	resetBeforeCommit bool
}

// Option configures the uploader.
type Option func(*Uploader)

// WithChunkSize sets the block size; non-positive values keep the default.
func WithChunkSize(size int) Option {
	return func(u *Uploader) {
		if size > 0 {
			u.chunkSize = size
		}
	}
}

// WithConnectionReset makes the uploader force fresh connections before the
// commit when the service supports it. Some HTTP stacks reuse connections the
// server already closed after a long staging phase.
func WithConnectionReset(enabled bool) Option {
	return func(u *Uploader) {
		u.resetBeforeCommit = enabled
	}
}

// NewUploader creates an uploader writing through service.
func NewUploader(service Service, opts ...Option) *Uploader {
	u := &Uploader{
		service:   service,
		chunkSize: chunk.DefaultSize,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// ChunkSize returns the configured block size.
func (u *Uploader) ChunkSize() int {
	return u.chunkSize
}

// Upload stages the file in target.LocalPath block by block and commits it.
// If reading or staging fails, no commit is issued.
func (u *Uploader) Upload(ctx context.Context, target Target) error {
	if target.LocalPath == "" || target.Container == "" || target.Blob == "" {
		return fmt.Errorf("%w: upload target %+v is incomplete", artifact.ErrConfiguration, target)
	}

	logger.InfoKV(ctx, "Uploading file", "file", target.LocalPath, "container", target.Container, "blob", target.Blob)

	file, err := os.Open(filepath.Clean(target.LocalPath))
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", artifact.ErrIO, target.LocalPath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", artifact.ErrIO, target.LocalPath, err)
	}

	expected := chunk.Count(info.Size(), u.chunkSize)
	if expected > MaxBlocks {
		return fmt.Errorf("%w: %s needs %d blocks of %d bytes: %w",
			artifact.ErrConfiguration, target.LocalPath, expected, u.chunkSize, ErrTooManyBlocks)
	}

	list, digest, err := u.stage(ctx, file, target, int(expected))
	if err != nil {
		return err
	}

	u.resetConnections(ctx)

	headers := Headers{
		ContentType: target.ContentType,
		ContentMD5:  digest,
	}

	if err = u.service.CommitBlocks(ctx, target.Container, target.Blob, list.IDs(), headers); err != nil {
		return fmt.Errorf("%w: commit %d blocks to %s/%s: %w",
			artifact.ErrTransport, len(list), target.Container, target.Blob, err)
	}

	logger.InfoKV(ctx, "Done uploading file",
		"file", target.LocalPath, "container", target.Container, "blob", target.Blob, "blocks", len(list))

	return nil
}

// stage reads r chunk by chunk and stages every chunk in order.
// It returns the staged list and the MD5 digest of everything read.
func (u *Uploader) stage(ctx context.Context, r io.Reader, target Target, capacity int) (List, []byte, error) {
	var (
		list   = make(List, 0, capacity)
		hasher = md5.New() //nolint:gosec // See import comment.
	)

	for data, err := range chunk.Read(r, u.chunkSize) {
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read %s: %w", artifact.ErrIO, target.LocalPath, err)
		}

		id, err := ID(len(list))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", artifact.ErrConfiguration, target.LocalPath, err)
		}

		if err = u.service.StageBlock(ctx, target.Container, target.Blob, id, data); err != nil {
			return nil, nil, fmt.Errorf("%w: stage block %s of %s/%s: %w",
				artifact.ErrTransport, id, target.Container, target.Blob, err)
		}

		_, _ = hasher.Write(data)
		list = append(list, Block{ID: id, State: StateUncommitted})

		logger.InfoKV(ctx, "Uploaded chunk", "blob", target.Blob, "chunk", len(list)-1, "bytes", len(data))
	}

	return list, hasher.Sum(nil), nil
}

// resetConnections drops pooled connections before the commit when enabled and supported.
func (u *Uploader) resetConnections(ctx context.Context) {
	if !u.resetBeforeCommit {
		return
	}

	closer, ok := u.service.(idleCloser)
	if !ok {
		logger.DebugKV(ctx, "Storage service cannot reset connections, skipping")
		return
	}

	closer.CloseIdleConnections()
	logger.DebugKV(ctx, "Dropped idle storage connections before commit")
}
