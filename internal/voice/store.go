// Package voice stores reference voice samples used by the speech engine.
// Each sample is a WAV file named <id>.wav inside one directory.
package voice

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("voice not found")
	ErrInvalidID    = errors.New("voice id may only contain letters, digits, '-' and '_'")
	ErrInvalidAudio = errors.New("invalid audio")
)

// MaxSampleBytes bounds a single uploaded sample.
const MaxSampleBytes = 20 << 20

var idRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store is a directory of voice samples.
type Store struct {
	dir string
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("voices directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create voices dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".wav")
}

// List returns the ids of all stored samples, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read voices dir: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".wav"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Save decodes a base64 sample and stores it. An empty name gets a
// generated id.
func (s *Store) Save(audioB64, name string) (string, error) {
	cleaned := strings.Join(strings.Fields(audioB64), "")
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrInvalidAudio, err)
	}
	return s.SaveWAV(data, name)
}

// SaveWAV validates raw WAV bytes and stores them.
func (s *Store) SaveWAV(data []byte, name string) (string, error) {
	id, err := resolveID(name)
	if err != nil {
		return "", err
	}
	if err := checkWAV(data); err != nil {
		return "", err
	}

	// Write to a temp file first so a failed write never leaves a partial sample.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write sample: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close sample: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return "", fmt.Errorf("store sample: %w", err)
	}
	return id, nil
}

// Delete removes a sample.
func (s *Store) Delete(id string) error {
	if !idRe.MatchString(id) {
		return ErrInvalidID
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	return nil
}

func resolveID(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:12], nil
	}
	if !idRe.MatchString(name) {
		return "", ErrInvalidID
	}
	return name, nil
}

// checkWAV accepts a RIFF/WAVE container with at least one byte of payload
// after the header.
func checkWAV(data []byte) error {
	switch {
	case len(data) == 0:
		return fmt.Errorf("%w: empty content", ErrInvalidAudio)
	case len(data) > MaxSampleBytes:
		return fmt.Errorf("%w: sample exceeds %d bytes", ErrInvalidAudio, MaxSampleBytes)
	case len(data) <= 44:
		return fmt.Errorf("%w: file too short", ErrInvalidAudio)
	case !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")):
		return fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidAudio)
	}
	return nil
}
