package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore is a [Store] backed by a single JSON file mapping guild IDs to
// their settings. The whole file is rewritten on every mutation; suitable for
// single-instance deployments.
type FileStore struct {
	path string

	mu   sync.Mutex
	data map[string]GuildSettings
}

// NewFileStore loads (or initialises) the settings file at path. A missing
// file is not an error; a corrupt file is logged and treated as empty rather
// than blocking startup.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: make(map[string]GuildSettings),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("settings: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		slog.Warn("settings: file is corrupt, starting with empty settings", "path", path, "error", err)
		s.data = make(map[string]GuildSettings)
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, guildID string) (GuildSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.data[guildID]
	return gs, ok, nil
}

func (s *FileStore) SetVoiceCategory(ctx context.Context, guildID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := s.data[guildID]
	gs.VoiceCategoryID = categoryID
	s.data[guildID] = gs
	return s.persist()
}

func (s *FileStore) SetResultChannel(ctx context.Context, guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := s.data[guildID]
	gs.ResultChannelID = channelID
	s.data[guildID] = gs
	return s.persist()
}

func (s *FileStore) Clear(ctx context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[guildID]; !ok {
		return nil
	}
	delete(s.data, guildID)
	return s.persist()
}

// persist writes the full settings map atomically via a temp file rename.
// Callers must hold s.mu.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("settings: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: replacing %s: %w", s.path, err)
	}
	return nil
}
