package media

import (
	"chat-gate/domain"
	"chat-gate/errors"
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var (
	pngPayload = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	mp4Payload = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0,
		'i', 's', 'o', 'm', 'i', 's', 'o', '2'}
)

func newUploader(t *testing.T, maxBytes int) *DiskUploader {
	uploader, err := NewDiskUploader(t.TempDir(), "http://localhost:8081/media/", maxBytes,
		logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return uploader
}

func TestDiskUploader_Stores_Image(t *testing.T) {
	req := require.New(t)
	uploader := newUploader(t, 0)

	url, err := uploader.Upload(context.Background(), pngPayload, domain.MediaImage)

	req.NoError(err)
	req.True(strings.HasPrefix(url, "http://localhost:8081/media/"))
	req.Equal(".png", path.Ext(url))
	stored, err := os.ReadFile(filepath.Join(uploader.Dir(), path.Base(url)))
	req.NoError(err)
	req.Equal(pngPayload, stored)
}

func TestDiskUploader_Stores_Video(t *testing.T) {
	req := require.New(t)
	uploader := newUploader(t, 0)

	url, err := uploader.Upload(context.Background(), mp4Payload, domain.MediaVideo)

	req.NoError(err)
	req.Equal(".mp4", path.Ext(url))
}

func TestDiskUploader_Rejects_Wrong_Kind(t *testing.T) {
	uploader := newUploader(t, 16)
	tests := []struct {
		name    string
		payload []byte
		kind    domain.MediaKind
	}{
		{"text as image", []byte("definitely not a picture"), domain.MediaImage},
		{"image as video", pngPayload[:16], domain.MediaVideo},
		{"empty", nil, domain.MediaImage},
		{"too large", pngPayload, domain.MediaImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := uploader.Upload(context.Background(), tt.payload, tt.kind)
			req.Equal(errors.KindValidation, errors.KindOf(err))
		})
	}
	entries, err := os.ReadDir(uploader.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDecodePayload(t *testing.T) {
	req := require.New(t)
	encoded := base64.StdEncoding.EncodeToString(pngPayload)

	fromDataURL, err := DecodePayload("data:image/png;base64," + encoded)
	req.NoError(err)
	req.Equal(pngPayload, fromDataURL)

	bare, err := DecodePayload(encoded)
	req.NoError(err)
	req.Equal(pngPayload, bare)

	empty, err := DecodePayload("  ")
	req.NoError(err)
	req.Nil(empty)

	_, err = DecodePayload("data:image/png,rawbytes")
	req.ErrorIs(err, errors.ErrUnsupportedMedia)
	_, err = DecodePayload("%%%")
	req.ErrorIs(err, errors.ErrUnsupportedMedia)
}
