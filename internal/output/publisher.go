package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/azure-publisher/internal/logger"
)

// DefaultFilePermissions is used for output files created by publishers.
const DefaultFilePermissions = 0o644

// errMultilineValue is returned for values that would break a KEY=value file.
var errMultilineValue = errors.New("value contains a line break")

// Publisher writes outputs to one surface.
type Publisher interface {
	Publish(ctx context.Context, outputs *Outputs) error
}

// EnvFile appends KEY=value lines to a file, the format CI systems read step outputs from.
type EnvFile struct {
	// path is the file to append to.
	path string
}

// NewEnvFile creates a publisher appending to path.
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: filepath.Clean(path)}
}

// Publish implements Publisher.
func (e *EnvFile) Publish(_ context.Context, outputs *Outputs) error {
	var builder strings.Builder

	for _, entry := range outputs.Entries() {
		if strings.ContainsAny(entry.Value, "\r\n") {
			return fmt.Errorf("%s: %w", entry.Key, errMultilineValue)
		}

		builder.WriteString(entry.Key)
		builder.WriteByte('=')
		builder.WriteString(entry.Value)
		builder.WriteByte('\n')
	}

	file, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}

	if _, err = file.WriteString(builder.String()); err != nil {
		_ = file.Close()
		return fmt.Errorf("write env file: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close env file: %w", err)
	}

	return nil
}

// YAMLFile persists outputs as a YAML document.
type YAMLFile struct {
	// path is the document location.
	path string
	// mu serializes writers sharing the publisher.
	mu sync.Mutex
}

// NewYAMLFile creates a publisher writing to path.
func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: filepath.Clean(path)}
}

// Publish implements Publisher; the file is replaced on every run.
func (y *YAMLFile) Publish(_ context.Context, outputs *Outputs) error {
	y.mu.Lock()
	defer y.mu.Unlock()

	data, err := yaml.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}

	if err = os.WriteFile(y.path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write outputs file: %w", err)
	}

	return nil
}

// Load reads a document written by Publish.
func (y *YAMLFile) Load(_ context.Context) (*Outputs, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	contents, err := os.ReadFile(y.path)
	if err != nil {
		return nil, fmt.Errorf("read outputs file: %w", err)
	}

	var outputs Outputs
	if err = yaml.Unmarshal(contents, &outputs); err != nil {
		return nil, fmt.Errorf("decode outputs file: %w", err)
	}

	return &outputs, nil
}

// Log reports outputs as log lines at info level even when the global level is higher.
type Log struct{}

// Publish implements Publisher.
func (Log) Publish(ctx context.Context, outputs *Outputs) error {
	l := logger.FromContext(ctx).Desugar().WithOptions(logger.WithLevel(zapcore.InfoLevel)).Sugar()

	for _, entry := range outputs.Entries() {
		l.Infow("Published output", "key", entry.Key, "url", entry.Value)
	}

	return nil
}

// Multi publishes to every publisher in order and stops at the first failure.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, outputs *Outputs) error {
	for _, p := range m {
		if err := p.Publish(ctx, outputs); err != nil {
			return err
		}
	}

	return nil
}
