package drivesync

import (
	"context"

	"github.com/xtrinch/food-coach/internal/backup"
	"github.com/xtrinch/food-coach/internal/config"
	"github.com/xtrinch/food-coach/internal/logger"
)

// Service ties the Drive client to the local backup manager. Import is
// the only path that mutates local state from a remote read, and it goes
// through the same atomic restore as a file import.
type Service struct {
	client   *Client
	backups  *backup.Manager
	settings *config.SettingsFile
}

// NewService creates the sync orchestrator.
func NewService(client *Client, backups *backup.Manager, settings *config.SettingsFile) *Service {
	return &Service{client: client, backups: backups, settings: settings}
}

// SyncUp builds a fresh backup and uploads it, recording the remote
// modification time as the last-synced marker.
func (s *Service) SyncUp(ctx context.Context) (*SyncResult, error) {
	payload, err := s.backups.Build(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.client.Upload(ctx, payload)
	if err != nil {
		return nil, err
	}
	if s.settings != nil {
		if err := s.settings.SetLastDriveSync(result.ModifiedTime); err != nil {
			logger.Warningf("Failed to record last sync time: %v", err)
		}
	}
	logger.Info("Backup uploaded to Drive", "file_id", result.FileID, "modified", result.ModifiedTime)
	return result, nil
}

// Download fetches and normalizes the remote backup without touching
// local state.
func (s *Service) Download(ctx context.Context) (*backup.Payload, error) {
	return s.client.Download(ctx)
}

// ImportFromRemote downloads the remote backup and atomically replaces
// the local store with it.
func (s *Service) ImportFromRemote(ctx context.Context) (*backup.Payload, error) {
	payload, err := s.client.Download(ctx)
	if err != nil {
		return nil, err
	}
	return s.backups.Restore(ctx, payload)
}

// LastSync returns the recorded remote modification time of the last
// successful upload, or empty.
func (s *Service) LastSync() string {
	if s.settings == nil {
		return ""
	}
	return s.settings.LastDriveSync()
}
