package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidName is returned when a file name would escape its directory.
	ErrInvalidName = errors.New("invalid file name")
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using two local directories.
// It does not support S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	incomingDir string
	outgoingDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// Empty directory arguments default to "uploads" and "converted" under
// os.TempDir(). Both directories are created if they don't exist.
func NewLocalStorage(incomingDir, outgoingDir string) (*LocalStorage, error) {
	if incomingDir == "" {
		incomingDir = filepath.Join(os.TempDir(), "video-converter", "uploads")
	}
	if outgoingDir == "" {
		outgoingDir = filepath.Join(os.TempDir(), "video-converter", "converted")
	}

	for _, dir := range []string{incomingDir, outgoingDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &LocalStorage{incomingDir: incomingDir, outgoingDir: outgoingDir}, nil
}

// IncomingDir returns the upload directory path.
func (s *LocalStorage) IncomingDir() string {
	return s.incomingDir
}

// OutgoingDir returns the result directory path.
func (s *LocalStorage) OutgoingDir() string {
	return s.outgoingDir
}

// SaveIncoming writes data to incomingDir/name. The file is created
// exclusively so an existing upload is never overwritten.
func (s *LocalStorage) SaveIncoming(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := checkName(name); err != nil {
		return "", err
	}

	path := filepath.Join(s.incomingDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 - name is validated above
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return path, nil
}

// OutgoingPath returns outgoingDir/name.
func (s *LocalStorage) OutgoingPath(name string) string {
	return filepath.Join(s.outgoingDir, filepath.Base(name))
}

// Remove deletes the specified files.
// It continues even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// PruneOutgoing removes regular files in outgoingDir whose modification time
// is before cutoff.
func (s *LocalStorage) PruneOutgoing(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.outgoingDir)
	if err != nil {
		return 0, fmt.Errorf("read outgoing directory: %w", err)
	}

	var stale []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, filepath.Join(s.outgoingDir, e.Name()))
		}
	}

	if err := s.Remove(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
