package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	plainExt      = ".json"
	compressedExt = ".json.zst"
)

// FileStore lays artifacts out as <base>/<SYMBOL>/<CONTRACT_ID>.json
// (.json.zst when compression is enabled). Writes go through a temp file
// and rename so readers never observe a partial artifact.
type FileStore struct {
	baseDir  string
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

func NewFileStore(baseDir string, compress bool) (*FileStore, error) {
	fs := &FileStore{baseDir: baseDir, compress: compress}

	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		fs.enc = enc
	}

	// The decoder is always available so a store can read artifacts written
	// with compression enabled even after it has been turned off.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	fs.dec = dec

	return fs, nil
}

func (s *FileStore) BaseDir() string {
	return s.baseDir
}

func (s *FileStore) Put(symbol, contractID string, artifact *Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshaling artifact: %w", err)
	}

	ext := plainExt
	if s.compress {
		data = s.enc.EncodeAll(data, nil)
		ext = compressedExt
	}

	destPath := s.path(symbol, contractID, ext)
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := destPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0640); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

func (s *FileStore) Get(symbol, contractID string) (*Artifact, error) {
	data, compressed, err := s.read(symbol, contractID)
	if err != nil {
		return nil, err
	}

	if compressed {
		data, err = s.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing artifact: %w", err)
		}
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("unmarshaling artifact: %w", err)
	}
	return &artifact, nil
}

func (s *FileStore) Delete(symbol, contractID string) error {
	for _, ext := range []string{plainExt, compressedExt} {
		err := os.Remove(s.path(symbol, contractID, ext))
		if err == nil {
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("deleting artifact: %w", err)
		}
	}
	return nil
}

func (s *FileStore) List(symbol string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, compressedExt):
			ids = append(ids, strings.TrimSuffix(name, compressedExt))
		case strings.HasSuffix(name, plainExt):
			ids = append(ids, strings.TrimSuffix(name, plainExt))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Symbols returns the symbols with at least one artifact directory.
func (s *FileStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing symbols: %w", err)
	}

	var symbols []string
	for _, entry := range entries {
		if entry.IsDir() {
			symbols = append(symbols, entry.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *FileStore) Close() {
	if s.enc != nil {
		s.enc.Close()
	}
	if s.dec != nil {
		s.dec.Close()
	}
}

func (s *FileStore) read(symbol, contractID string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(symbol, contractID, plainExt))
	if err == nil {
		return data, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("reading artifact: %w", err)
	}

	data, err = os.ReadFile(s.path(symbol, contractID, compressedExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("reading artifact: %w", err)
	}
	return data, true, nil
}

func (s *FileStore) path(symbol, contractID, ext string) string {
	return filepath.Join(s.baseDir, symbol, contractID+ext)
}
