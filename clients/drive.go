package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/hugogrimmett/meeting-analyser/calendar"
)

const (
	// DefaultNotesKeyword picks the notes attachment by title.
	DefaultNotesKeyword = "gemini"

	// GoogleDocMimeType is the only attachment type exported as notes.
	GoogleDocMimeType = "application/vnd.google-apps.document"
)

// Drive fetches meeting notes attached to events and stores chart images.
type Drive struct {
	svc     *gdrive.Service
	keyword string
}

// NewDrive builds the client on hc. An empty endpoint means the public API.
func NewDrive(ctx context.Context, hc *http.Client, endpoint, keyword string) (*Drive, error) {
	svc, err := gdrive.NewService(ctx, serviceOptions(hc, endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	if keyword == "" {
		keyword = DefaultNotesKeyword
	}
	return &Drive{svc: svc, keyword: strings.ToLower(keyword)}, nil
}

// Fetch exports the notes document attached to ev as plain text. An event
// without a matching Google Docs attachment, or whose document is gone, has
// no notes.
func (d *Drive) Fetch(ctx context.Context, ev calendar.Event) (string, bool, error) {
	att, ok := d.notesAttachment(ev)
	if !ok {
		return "", false, nil
	}

	resp, err := d.svc.Files.Export(att.FileID, "text/plain").Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("drive export: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("drive export read: %w", err)
	}
	// Exported text starts with a byte order mark.
	return strings.TrimPrefix(string(b), "\ufeff"), true, nil
}

func (d *Drive) notesAttachment(ev calendar.Event) (calendar.Attachment, bool) {
	for _, a := range ev.Attachments {
		if a.FileID == "" || !strings.Contains(strings.ToLower(a.Title), d.keyword) {
			continue
		}
		if a.MimeType != "" && a.MimeType != GoogleDocMimeType {
			continue
		}
		return a, true
	}
	return calendar.Attachment{}, false
}

// DriveFile is an uploaded file.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
}

// PublicURL is a link the Slides API can fetch the file from once it is
// shared with anyone.
func (f DriveFile) PublicURL() string {
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(f.ID)
}

// Upload stores the file at path.
func (d *Drive) Upload(ctx context.Context, path, mimeType string) (*DriveFile, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	meta := &gdrive.File{Name: filepath.Base(path), MimeType: mimeType}
	f, err := d.svc.Files.Create(meta).
		Media(fd, googleapi.ContentType(mimeType)).
		Fields("id", "name", "mimeType").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive upload: %w", err)
	}
	return &DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// ShareWithAnyone grants read access to anyone with the link.
func (d *Drive) ShareWithAnyone(ctx context.Context, fileID string) error {
	_, err := d.svc.Permissions.Create(fileID, &gdrive.Permission{Role: "reader", Type: "anyone"}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive permission: %w", err)
	}
	return nil
}
