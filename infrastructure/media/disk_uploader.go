// Package media stores message and group attachments on the local disk and
// serves them back through the debug HTTP server.
package media

import (
	"chat-gate/domain"
	"chat-gate/errors"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DiskUploader implements contract.MediaUploader. Files are named by a random
// id plus the extension of their detected type.
type DiskUploader struct {
	dir      string
	baseURL  string
	maxBytes int
	log      *slog.Logger
}

func NewDiskUploader(dir, baseURL string, maxBytes int, log *slog.Logger) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskUploader{
		dir:      dir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
		log:      log,
	}, nil
}

// Upload checks that payload really is of the expected kind, writes it and
// returns its public URL.
func (u *DiskUploader) Upload(ctx context.Context, payload []byte, kind domain.MediaKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", errors.ErrUnsupportedMedia
	}
	if u.maxBytes > 0 && len(payload) > u.maxBytes {
		return "", errors.Validation(fmt.Sprintf("attachment exceeds %d bytes", u.maxBytes))
	}

	detected := mimetype.Detect(payload)
	if !matchesKind(detected, kind) {
		u.log.Debug("Rejected attachment", "kind", kind, "mime", detected.String())
		return "", errors.ErrUnsupportedMedia.WithMeta("mime", detected.String())
	}

	name := uuid.NewString() + detected.Extension()
	if err := os.WriteFile(filepath.Join(u.dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	u.log.Debug("Attachment stored", "name", name, "mime", detected.String(), "size", len(payload))
	return u.baseURL + "/" + name, nil
}

// Dir is the folder served under the base URL.
func (u *DiskUploader) Dir() string { return u.dir }

func matchesKind(detected *mimetype.MIME, kind domain.MediaKind) bool {
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), string(kind)+"/") {
			return true
		}
	}
	return false
}

// DecodePayload accepts either a data URL ("data:image/png;base64,...") or a
// bare base64 string, as sent by browser clients.
func DecodePayload(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return nil, errors.ErrUnsupportedMedia
		}
		encoded = encoded[comma+1:]
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.ErrUnsupportedMedia
	}
	return payload, nil
}
