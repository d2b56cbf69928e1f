// Package drive adapts the Google Drive API to the document source
// port. Native Google Workspace files are exported to text; everything
// else is downloaded as-is.
package drive

import (
	"context"
	"fmt"
	"io"
	"time"

	gdrive "google.golang.org/api/drive/v3"

	"github.com/dhluong90/presale-assistance-backend/internal/connectors/google"
	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

// Ensure DriveSource implements the interface.
var _ driven.DocumentSource = (*DriveSource)(nil)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxDownloadSize caps downloaded and exported content (5MB).
const MaxDownloadSize = 5 * 1024 * 1024

// DefaultPageSize is the listing page size.
const DefaultPageSize = 100

// listFields limits the listing response to the fields we read.
const listFields = "nextPageToken, files(id, name, mimeType, createdTime, modifiedTime)"

// Config holds Drive source configuration.
type Config struct {
	// FolderID is the Drive folder to list. Empty means the Drive root.
	FolderID string
	// PageSize is the listing page size.
	PageSize int64
}

// DriveSource serves documents from a Google Drive folder.
type DriveSource struct {
	svc     *gdrive.Service
	cfg     Config
	limiter *google.RateLimiter
}

// New creates a Drive source over an authenticated service.
func New(svc *gdrive.Service, cfg Config) *DriveSource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &DriveSource{
		svc:     svc,
		cfg:     cfg,
		limiter: google.NewRateLimiter(google.DefaultDriveRateLimit),
	}
}

// Kind returns the source type identifier.
func (s *DriveSource) Kind() string {
	return "google-drive"
}

// ListFiles lists the non-trashed files in a folder. An empty location
// means the configured folder. Native Workspace files are reported
// with the MIME type their export will produce, so MIME-based routing
// downstream matches the bytes GetFile returns.
func (s *DriveSource) ListFiles(ctx context.Context, location string) ([]domain.FileInfo, error) {
	folderID := location
	if folderID == "" {
		folderID = s.cfg.FolderID
	}

	query := "trashed = false"
	if folderID != "" {
		query = fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	}

	var files []domain.FileInfo
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			Fields(listFields).
			PageSize(s.cfg.PageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if google.IsRateLimited(err) {
				s.limiter.RecordRateLimitError(0)
			}
			return nil, fmt.Errorf("list folder %q: %w", folderID, google.WrapError(err))
		}

		for _, f := range resp.Files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			files = append(files, domain.FileInfo{
				ID:           f.Id,
				Name:         f.Name,
				MIMEType:     effectiveMIMEType(f.MimeType),
				CreatedTime:  parseDriveTime(f.CreatedTime),
				ModifiedTime: parseDriveTime(f.ModifiedTime),
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	logger.Debug("Listed %d files from Drive folder %q", len(files), folderID)
	return files, nil
}

// GetFile fetches one file's content. Native Workspace files are
// exported; regular files are downloaded.
func (s *DriveSource) GetFile(ctx context.Context, id string) (string, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}

	meta, err := s.svc.Files.Get(id).
		Fields("id, name, mimeType").
		Context(ctx).
		Do()
	if err != nil {
		if google.IsRateLimited(err) {
			s.limiter.RecordRateLimitError(0)
		}
		return "", nil, fmt.Errorf("stat file %s: %w", id, google.WrapError(err))
	}

	content, err := s.fetchContent(ctx, meta)
	if err != nil {
		if google.IsRateLimited(err) {
			s.limiter.RecordRateLimitError(0)
		}
		return "", nil, fmt.Errorf("fetch file %s: %w", id, google.WrapError(err))
	}
	return meta.Name, content, nil
}

// Close releases resources. The Drive service holds no connections of
// its own.
func (s *DriveSource) Close() error {
	return nil
}

func (s *DriveSource) fetchContent(ctx context.Context, meta *gdrive.File) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		resp *gdrive.FilesGetCall
		exp  *gdrive.FilesExportCall
	)
	if exportMime, ok := exportMIMEFor(meta.MimeType); ok {
		exp = s.svc.Files.Export(meta.Id, exportMime)
	} else {
		resp = s.svc.Files.Get(meta.Id)
	}

	var body io.ReadCloser
	if exp != nil {
		r, err := exp.Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		body = r.Body
	} else {
		r, err := resp.Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		body = r.Body
	}
	defer body.Close()

	return io.ReadAll(io.LimitReader(body, MaxDownloadSize))
}

// exportMIMEFor returns the export format for a native Workspace MIME
// type, or false for regular files.
func exportMIMEFor(mimeType string) (string, bool) {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return ExportMimeText, true
	case MimeTypeGoogleSheet:
		return ExportMimeCSV, true
	default:
		return "", false
	}
}

// effectiveMIMEType returns the MIME type downstream consumers should
// route on: the export format for native files, the stored type
// otherwise.
func effectiveMIMEType(mimeType string) string {
	if exportMime, ok := exportMIMEFor(mimeType); ok {
		return exportMime
	}
	return mimeType
}

// parseDriveTime parses Drive's RFC3339 timestamps. Zero on failure;
// metadata timestamps are advisory.
func parseDriveTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
