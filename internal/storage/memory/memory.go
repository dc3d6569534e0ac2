// Package memory provides an in-process blob store with block blob semantics.
//
// It backs the CLI's dry-run mode and the tests of every layer above the
// Azure adapter: staged blocks stay invisible until committed, committing an
// unknown block fails, and re-uploading a blob replaces its content.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/oshokin/azure-publisher/internal/storage/block"
)

// Operation names recorded in the call log.
const (
	OpStage  = "stage"
	OpCommit = "commit"
	OpWrite  = "write"
)

var (
	// ErrBlockNotStaged is returned when a commit references an unknown block.
	ErrBlockNotStaged = errors.New("block not staged")
	// ErrBlobNotFound is returned by Blob for a missing blob.
	ErrBlobNotFound = errors.New("blob not found")
)

// Call is one recorded storage operation.
type Call struct {
	// Op is one of OpStage, OpCommit, OpWrite.
	Op string
	// Container and Blob identify the target.
	Container string
	Blob      string
	// BlockID is set for OpStage.
	BlockID string
	// BlockIDs is set for OpCommit.
	BlockIDs []string
	// Size is the number of bytes staged or written.
	Size int
}

// Object is a committed blob.
type Object struct {
	// Data is the blob content.
	Data []byte
	// ContentType is the stored content type.
	ContentType string
	// ContentMD5 is the digest supplied at commit time, if any.
	ContentMD5 []byte
}

// Store is a concurrency-safe in-memory blob store.
type Store struct {
	// FailOn, if set, is consulted before each operation; a non-nil error aborts it.
	FailOn func(call Call) error

	// mu protects the maps and the call log.
	mu sync.Mutex
	// staged holds uncommitted blocks per blob key.
	staged map[string]map[string][]byte
	// blobs holds committed blobs per blob key.
	blobs map[string]*Object
	// calls is the ordered operation log.
	calls []Call
}

// New creates an empty store.
func New() *Store {
	return &Store{
		staged: make(map[string]map[string][]byte),
		blobs:  make(map[string]*Object),
	}
}

// StageBlock implements block.Service.
func (s *Store) StageBlock(_ context.Context, container, blob, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Op: OpStage, Container: container, Blob: blob, BlockID: id, Size: len(data)}
	if err := s.record(call); err != nil {
		return err
	}

	k := key(container, blob)
	if s.staged[k] == nil {
		s.staged[k] = make(map[string][]byte)
	}

	s.staged[k][id] = bytes.Clone(data)

	return nil
}

// CommitBlocks implements block.Service.
func (s *Store) CommitBlocks(_ context.Context, container, blob string, ids []string, headers block.Headers) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Op: OpCommit, Container: container, Blob: blob, BlockIDs: slices.Clone(ids)}
	if err := s.record(call); err != nil {
		return err
	}

	k := key(container, blob)
	staged := s.staged[k]

	var content bytes.Buffer

	for _, id := range ids {
		data, ok := staged[id]
		if !ok {
			return fmt.Errorf("%s in %s: %w", id, k, ErrBlockNotStaged)
		}

		content.Write(data)
	}

	delete(s.staged, k)

	s.blobs[k] = &Object{
		Data:        content.Bytes(),
		ContentType: headers.ContentType,
		ContentMD5:  bytes.Clone(headers.ContentMD5),
	}

	return nil
}

// WriteBlob stores data directly as a committed blob.
func (s *Store) WriteBlob(_ context.Context, container, blob string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Op: OpWrite, Container: container, Blob: blob, Size: len(data)}
	if err := s.record(call); err != nil {
		return err
	}

	s.blobs[key(container, blob)] = &Object{
		Data:        bytes.Clone(data),
		ContentType: contentType,
	}

	return nil
}

// Blob returns a copy of a committed blob.
func (s *Store) Blob(container, blob string) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.blobs[key(container, blob)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key(container, blob), ErrBlobNotFound)
	}

	return &Object{
		Data:        bytes.Clone(obj.Data),
		ContentType: obj.ContentType,
		ContentMD5:  bytes.Clone(obj.ContentMD5),
	}, nil
}

// Blobs returns the sorted keys ("container/blob") of all committed blobs.
func (s *Store) Blobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Calls returns a copy of the operation log.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.calls)
}

// Uncommitted reports how many staged blocks are waiting for a commit on a blob.
func (s *Store) Uncommitted(container, blob string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.staged[key(container, blob)])
}

// record runs the failure hook and appends the call to the log.
func (s *Store) record(call Call) error {
	if s.FailOn != nil {
		if err := s.FailOn(call); err != nil {
			return err
		}
	}

	s.calls = append(s.calls, call)

	return nil
}

func key(container, blob string) string {
	return container + "/" + blob
}
