// Package gallery owns the gallery directory: chart artifacts, their JSON
// manifests and the generated index page.
package gallery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chartgallery/internal/domain"
	"chartgallery/internal/metrics"
)

// ErrCorruptManifest is returned by ReadManifest when the sidecar exists but
// does not decode.
var ErrCorruptManifest = errors.New("corrupt manifest")

// maxSuffix bounds the -2, -3, ... disambiguation of a taken id.
const maxSuffix = 1000

// Store serialises every mutation of one gallery directory. Create, Delete,
// WriteManifest and Rebuild hold the same lock so an index scan always sees a
// consistent snapshot.
type Store struct {
	dir     string
	mu      sync.Mutex
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics records the artifact count on every rebuild.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore opens the gallery directory, creating it if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("gallery dir: %w", domain.ErrInvalidRequest)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating gallery dir: %w", err)
	}
	s := &Store{dir: dir, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "gallery", "dir", dir)
	return s, nil
}

// Dir returns the gallery directory.
func (s *Store) Dir() string { return s.dir }

// ---------------------------------------------------------------------------
// Manifests
// ---------------------------------------------------------------------------

// WriteManifest writes the sidecar for id, replacing any previous one.
func (s *Store) WriteManifest(id string, m Manifest) error {
	if !validID(id) {
		return fmt.Errorf("manifest id %q: %w", id, domain.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeManifest(id, m)
}

func (s *Store) writeManifest(id string, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest %s: %w", id, err)
	}
	return writeFileAtomic(filepath.Join(s.dir, ManifestFile(id)), data)
}

// ReadManifest returns the sidecar for id. A missing file yields an error
// wrapping domain.ErrNotFound and undecodable JSON one wrapping
// ErrCorruptManifest.
func (s *Store) ReadManifest(id string) (Manifest, error) {
	if !validID(id) {
		return Manifest{}, fmt.Errorf("manifest %q: %w", id, domain.ErrNotFound)
	}
	return readManifest(s.dir, id)
}

func readManifest(dir, id string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile(id)))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("manifest %s: %w", id, domain.ErrNotFound)
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w %s: %v", ErrCorruptManifest, ManifestFile(id), err)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

// Create writes doc as the artifact and m as its manifest under id, or under
// id-2, id-3, ... when id is taken. It returns the id actually used. The
// artifact is removed again if its manifest cannot be written.
func (s *Store) Create(id string, doc []byte, m Manifest) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("artifact id %q: %w", id, domain.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	final, err := s.freeID(id)
	if err != nil {
		return "", err
	}

	artifact := filepath.Join(s.dir, ArtifactFile(final))
	if err := writeFileAtomic(artifact, doc); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", final, err)
	}
	if err := s.writeManifest(final, m); err != nil {
		os.Remove(artifact)
		return "", err
	}
	s.log.Info("artifact created", "id", final, "bytes", len(doc))
	return final, nil
}

// freeID returns id or the first id-N with neither file present.
func (s *Store) freeID(id string) (string, error) {
	for n := 1; n <= maxSuffix; n++ {
		candidate := id
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", id, n)
		}
		if !s.exists(ArtifactFile(candidate)) && !s.exists(ManifestFile(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free id for %s after %d attempts", id, maxSuffix)
}

func (s *Store) exists(name string) bool {
	_, err := os.Lstat(filepath.Join(s.dir, name))
	return err == nil
}

// Delete removes the artifact and manifest for id. Missing files and ids that
// cannot name a gallery file are a no-op.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return nil
	}
	return s.remove(id, ArtifactFile(id))
}

// DeleteFile deletes by artifact filename as submitted by the index page.
// The named file is removed as is, so an artifact listed with an upper-case
// extension goes together with its manifest. Names that are not artifact
// filenames, including the index, are ignored.
func (s *Store) DeleteFile(filename string) error {
	id, ok := IDFromFilename(filename)
	if !ok {
		s.log.Debug("ignoring delete of non-artifact name", "filename", filename)
		return nil
	}
	return s.remove(id, filename)
}

func (s *Store) remove(id, artifact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	removed := 0
	for _, name := range []string{artifact, ManifestFile(id)} {
		err := os.Remove(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			removed++
		case !os.IsNotExist(err):
			errs = append(errs, err)
		}
	}
	if removed > 0 {
		s.log.Info("artifact deleted", "id", id, "file", artifact, "files", removed)
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Index
// ---------------------------------------------------------------------------

// Index scans the directory without writing anything.
func (s *Store) Index() (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildIndex(s.dir, s.log)
}

// Rebuild scans the directory and rewrites index.html.
func (s *Store) Rebuild() (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	idx, err := buildIndex(s.dir, s.log)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := RenderIndex(&buf, idx); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, IndexFile), buf.Bytes()); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	s.metrics.SetArtifacts(idx.Len())
	s.log.Debug("index rebuilt", "artifacts", idx.Len(), "orphans", idx.Orphans,
		"elapsed", time.Since(start).Round(time.Microsecond))
	return idx, nil
}

// writeFileAtomic writes data to a hidden temp file beside path and renames
// it into place. The temp name never ends in an artifact extension.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
