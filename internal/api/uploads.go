package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// blobStorage is the subset of storage.Client the handlers need; tests
// substitute a fake.
type blobStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// uploader stores validated multipart files in blob storage, optionally
// scanning them with clamd first.
type uploader struct {
	storage   blobStorage
	clamdAddr string
}

var errMaliciousUpload = fmt.Errorf("malicious file detected")

// objectKeyFor builds the per-user key for a new upload, keeping the original
// extension so stored objects stay recognizable.
func objectKeyFor(userID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("user-media/%d/%s%s", userID, uuid.NewString(), ext)
}

// userPrefix is the storage prefix holding all of one account's media.
func userPrefix(userID uint) string {
	return fmt.Sprintf("user-media/%d/", userID)
}

func uploadMediaType(file *multipart.FileHeader) string {
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

// store scans (when clamd is configured) and uploads file under objectKey.
func (u *uploader) store(ctx context.Context, file *multipart.FileHeader, objectKey string) error {
	if u.clamdAddr != "" {
		if err := u.scan(file); err != nil {
			return err
		}
	}

	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer reader.Close()

	if _, err := u.storage.UploadFile(ctx, objectKey, reader, file.Size, uploadMediaType(file)); err != nil {
		return fmt.Errorf("upload %q: %w", objectKey, err)
	}
	return nil
}

func (u *uploader) scan(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload for scan: %w", err)
	}

	client := clamd.NewClamd(u.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := client.ScanStream(reader, abortChan)
	reader.Close()
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return errMaliciousUpload
		}
	}
	return nil
}

// presignedOrEmpty resolves an object key to a short-lived URL; an empty key
// or a signing failure yields an empty string rather than an error, because
// media links are decoration on most responses.
func presignedOrEmpty(ctx context.Context, storage blobStorage, objectKey string) string {
	if objectKey == "" || storage == nil {
		return ""
	}
	url, err := storage.GeneratePresignedURL(ctx, objectKey, 15*time.Minute)
	if err != nil {
		return ""
	}
	return url
}
