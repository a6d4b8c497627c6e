package config

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// SettingsFile is the small mutable key-value state kept outside the
// database: the OpenAI key carried by backups and the last Drive sync
// marker. It deliberately does not live in the store, so a restore never
// touches it.
type SettingsFile struct {
	path string
	mu   sync.Mutex
}

type settingsPayload struct {
	OpenAIAPIKey  string `json:"openAiApiKey,omitempty"`
	LastDriveSync string `json:"lastDriveSync,omitempty"`
}

func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

func (s *SettingsFile) load() settingsPayload {
	var p settingsPayload
	data, err := os.ReadFile(s.path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p)
	return p
}

func (s *SettingsFile) save(p settingsPayload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *SettingsFile) OpenAIAPIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().OpenAIAPIKey
}

func (s *SettingsFile) SetOpenAIAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load()
	p.OpenAIAPIKey = key
	return s.save(p)
}

func (s *SettingsFile) LastDriveSync() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().LastDriveSync
}

func (s *SettingsFile) SetLastDriveSync(ts string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load()
	p.LastDriveSync = ts
	return s.save(p)
}

// Exists reports whether the settings file has been written before.
func (s *SettingsFile) Exists() bool {
	_, err := os.Stat(s.path)
	return !errors.Is(err, os.ErrNotExist)
}
