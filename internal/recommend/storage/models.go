// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrModelNotFound is returned when no artifact exists for a model name or version.
var ErrModelNotFound = errors.New("model artifact not found")

const artifactExt = ".gob.gz"

// ModelMetadata describes a stored artifact.
type ModelMetadata struct {
	// Name is the registry name of the model (e.g. "item_based_cf").
	Name string `json:"name"`

	// Version increases by one per save of the same name.
	Version int `json:"version"`

	// JobID is the training job that produced the artifact.
	JobID string `json:"job_id,omitempty"`

	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	InteractionCount int `json:"interaction_count"`
	ItemCount        int `json:"item_count"`
	UserCount        int `json:"user_count"`

	// Checksum is the SHA-256 of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-disk format of an artifact.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store persists model artifacts as {name}_v{version}.gob.gz files.
// It is safe for concurrent use.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per model name
	versions map[string]int
}

// NewStore opens (and creates) an artifact directory.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	all, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	for name, versions := range all {
		s.versions[name] = versions[0]
	}
	return s, nil
}

// scan returns every stored version per name, newest first.
func (s *Store) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		out[name] = append(out[name], version)
	}
	for name := range out {
		sort.Sort(sort.Reverse(sort.IntSlice(out[name])))
	}
	return out, nil
}

// parseModelFilename splits "item_based_cf_v3.gob.gz" into ("item_based_cf", 3).
func parseModelFilename(file string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(file, artifactExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, artifactExt))
}

// Save writes data as the next version of name and returns the completed
// metadata.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, data interface{}, meta ModelMetadata) (ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ModelMetadata{}, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return ModelMetadata{}, fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return ModelMetadata{}, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return ModelMetadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.Name = name
	meta.Version = s.versions[name] + 1
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()

	// Write to a temp file and rename so readers never see a partial artifact.
	final := s.modelPath(name, meta.Version)
	tmp, err := os.CreateTemp(s.baseDir, name+".tmp-*")
	if err != nil {
		return ModelMetadata{}, fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // no-op after a successful rename

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return ModelMetadata{}, fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ModelMetadata{}, fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return ModelMetadata{}, fmt.Errorf("publish model file: %w", err)
	}

	s.versions[name] = meta.Version
	return meta, nil
}

// Load decodes version of name into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
	}

	sf, err := readFile(s.modelPath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
		}
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

// Latest decodes the newest version of name into target.
func (s *Store) Latest(ctx context.Context, name string, target interface{}) (*ModelMetadata, error) {
	return s.Load(ctx, name, 0, target)
}

func readFile(path string) (*storedFile, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the store directory and a model name
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns the metadata of the latest version of every model,
// ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]ModelMetadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := readFile(s.modelPath(name, s.versions[name]))
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}
	return models, nil
}

// Delete removes a specific model version.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.modelPath(name, version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
		}
		return fmt.Errorf("delete model: %w", err)
	}

	if s.versions[name] != version {
		return nil
	}
	all, err := s.scan()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	if remaining := all[name]; len(remaining) > 0 {
		s.versions[name] = remaining[0]
	} else {
		delete(s.versions, name)
	}
	return nil
}

// Prune removes old versions of name, keeping the newest keepVersions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keepVersions < 1 {
		keepVersions = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.scan()
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}

	removed := 0
	versions := all[name]
	for i := keepVersions; i < len(versions); i++ {
		if err := os.Remove(s.modelPath(name, versions[i])); err == nil {
			removed++
		}
	}
	return removed, nil
}

//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(ModelState{})
	gob.Register(KNNState{})
	gob.Register(NCFState{})
	gob.Register(HybridState{})
	gob.Register(ModelMetadata{})
	gob.Register(storedFile{})
}
