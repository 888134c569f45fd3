// Package artifacts implements the durable model store: a named-blob
// directory holding at most two artifacts, the regression forest and the
// seasonal refinement model. Blobs are gob-encoded and zstd-framed, and
// writes are staged to a temp file then renamed so a crashed training run
// can never leave a torn artifact behind.
package artifacts

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Artifact names. The store holds at most these two blobs.
const (
	RegressionModel = "rf_model.bin.zst"
	SeasonalModel   = "seasonal_model.bin.zst"
)

// Store is a directory-backed blob store for model artifacts.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "artifacts"),
	}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Save gob-encodes v through a zstd writer into a temp file, then atomically
// renames it over the named artifact. Concurrent readers of the previous
// blob are unaffected; they hold their own file handle.
func (s *Store) Save(name string, v any) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any failure path.
	fail := func(stage string, cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%s %s: %w", stage, name, cause)
	}

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		return fail("opening zstd writer for", err)
	}
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return fail("encoding", err)
	}
	if err := zw.Close(); err != nil {
		return fail("flushing", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("closing", err)
	}

	final := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing %s: %w", name, err)
	}

	s.logger.Info("artifact saved", "name", name, "path", final)
	return nil
}

// Load decodes the named artifact into v. A missing artifact surfaces as an
// error satisfying errors.Is(err, fs.ErrNotExist); callers decide whether
// absence is recoverable.
func (s *Store) Load(name string, v any) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("opening zstd reader for %s: %w", name, err)
	}
	defer zr.Close()

	if err := gob.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
