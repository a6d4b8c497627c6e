package drivesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xtrinch/food-coach/internal/backup"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderName is the well-known Drive folder holding the backup.
	FolderName = "FoodCoach"
	// BackupFileName is the single tracked remote file.
	BackupFileName = "food-coach-backup.json"

	folderMIMEType = "application/vnd.google-apps.folder"
	defaultTimeout = 30 * time.Second
)

// SyncResult describes a completed upload.
type SyncResult struct {
	FileID       string
	ModifiedTime string
}

// Client synchronizes the backup blob with the well-known Drive file.
// Every remote call is bounded by the client timeout; an authorization
// rejection is retried exactly once after a forced re-consent.
type Client struct {
	tokens  TokenProvider
	timeout time.Duration
	opts    []option.ClientOption
}

// NewClient creates a Drive client. Extra options are appended to the
// service construction, letting tests point at a local server.
func NewClient(tokens TokenProvider, timeout time.Duration, opts ...option.ClientOption) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{tokens: tokens, timeout: timeout, opts: opts}
}

// Upload transmits the payload to the well-known file, creating the
// folder and file as needed or overwriting the existing file in place.
func (c *Client) Upload(ctx context.Context, payload *backup.Payload) (*SyncResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	var result *SyncResult
	err = c.run(ctx, "Drive upload", func(ctx context.Context, svc *drive.Service) error {
		folderID, err := c.ensureFolder(ctx, svc)
		if err != nil {
			return err
		}
		existing, err := c.findBackupFile(ctx, svc, folderID)
		if err != nil {
			return err
		}

		var file *drive.File
		if existing != nil {
			file, err = svc.Files.Update(existing.Id, &drive.File{}).
				Media(bytes.NewReader(data), googleapi.ContentType("application/json")).
				Fields("id", "modifiedTime").
				Context(ctx).Do()
		} else {
			file, err = svc.Files.Create(&drive.File{
				Name:     BackupFileName,
				Parents:  []string{folderID},
				MimeType: "application/json",
			}).
				Media(bytes.NewReader(data), googleapi.ContentType("application/json")).
				Fields("id", "modifiedTime").
				Context(ctx).Do()
		}
		if err != nil {
			return err
		}

		modified := file.ModifiedTime
		if modified == "" {
			modified = time.Now().UTC().Format(time.RFC3339)
		}
		result = &SyncResult{FileID: file.Id, ModifiedTime: modified}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Download fetches and normalizes the remote backup. A missing folder or
// file is a descriptive "no backup found" error, never an empty payload.
func (c *Client) Download(ctx context.Context) (*backup.Payload, error) {
	var payload *backup.Payload
	err := c.run(ctx, "Drive download", func(ctx context.Context, svc *drive.Service) error {
		folderID, err := c.findFolder(ctx, svc)
		if err != nil {
			return err
		}
		if folderID == "" {
			return apperrors.ErrNoRemoteBackup
		}
		file, err := c.findBackupFile(ctx, svc, folderID)
		if err != nil {
			return err
		}
		if file == nil {
			return apperrors.ErrNoRemoteBackup
		}

		resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		payload = backup.Normalize(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// run executes op with a fresh authenticated service under the client
// timeout. On an authorization rejection it invalidates the token, forces
// one re-consent and retries once; a second rejection is fatal.
func (c *Client) run(ctx context.Context, operation string, op func(ctx context.Context, svc *drive.Service) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.Token(ctx, false)
	if err != nil {
		return err
	}
	svc, err := c.service(ctx, token)
	if err != nil {
		return err
	}

	err = op(ctx, svc)
	if err == nil {
		return nil
	}
	if !isAuthError(err) {
		return c.classify(err, operation)
	}

	c.tokens.Invalidate()
	token, err = c.tokens.Token(ctx, true)
	if err != nil {
		return apperrors.ErrDriveUnauthorized
	}
	svc, err = c.service(ctx, token)
	if err != nil {
		return err
	}
	if err := op(ctx, svc); err != nil {
		if isAuthError(err) {
			return apperrors.ErrDriveUnauthorized
		}
		return c.classify(err, operation)
	}
	return nil
}

func (c *Client) service(ctx context.Context, token string) (*drive.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}, c.opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create Drive service: %w", err)
	}
	return svc, nil
}

func (c *Client) ensureFolder(ctx context.Context, svc *drive.Service) (string, error) {
	folderID, err := c.findFolder(ctx, svc)
	if err != nil {
		return "", err
	}
	if folderID != "" {
		return folderID, nil
	}
	// Lookup-then-create; a concurrent creator racing us is tolerated.
	folder, err := svc.Files.Create(&drive.File{
		Name:     FolderName,
		MimeType: folderMIMEType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return folder.Id, nil
}

func (c *Client) findFolder(ctx context.Context, svc *drive.Service) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", FolderName, folderMIMEType)
	list, err := svc.Files.List().Q(query).Fields("files(id,name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// findBackupFile returns the most recently modified file with the
// well-known name, or nil. Duplicates can exist; newest wins.
func (c *Client) findBackupFile(ctx context.Context, svc *drive.Service, folderID string) (*drive.File, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", BackupFileName, folderID)
	list, err := svc.Files.List().Q(query).
		Fields("files(id,name,modifiedTime,size)").
		OrderBy("modifiedTime desc").
		PageSize(1).
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func isAuthError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 401 {
		return true
	}
	// Drive reports some credential problems as 403 with an auth reason.
	if apiErr.Code == 403 {
		for _, item := range apiErr.Errors {
			if item.Reason == "authError" {
				return true
			}
		}
	}
	return false
}

// classify maps a failed remote call to the error taxonomy: timeouts get
// their own distinct kind, protocol errors carry the remote status/body.
func (c *Client) classify(err error, operation string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(operation)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apperrors.NewExternalAPIError(err, "Google Drive").
			WithContext("status", apiErr.Code).
			WithContext("body", apiErr.Body)
	}
	return apperrors.NewExternalAPIError(err, "Google Drive")
}
