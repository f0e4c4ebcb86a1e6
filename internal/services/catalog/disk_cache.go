package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ObjectStorage interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type DownloadRecorder interface {
	RecordCatalogDownload(kind string, err error)
}

// DiskCache mirrors object keys under dir. A file that exists locally is served
// as is; there is no expiry and no revalidation.
type DiskCache struct {
	storage ObjectStorage
	dir     string
	group   singleflight.Group
	metrics DownloadRecorder
	logger  *zap.Logger
}

func NewDiskCache(storage ObjectStorage, dir string, logger *zap.Logger) *DiskCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskCache{
		storage: storage,
		dir:     dir,
		logger:  logger,
	}
}

func (c *DiskCache) AttachMetrics(metrics DownloadRecorder) {
	c.metrics = metrics
}

// Path returns the local file for key, downloading it first when absent.
// Concurrent callers for the same key share a single download.
func (c *DiskCache) Path(ctx context.Context, key, kind string) (string, error) {
	local := filepath.Join(c.dir, filepath.FromSlash(key))
	if exists(local) {
		return local, nil
	}

	_, err, _ := c.group.Do(key, func() (interface{}, error) {
		if exists(local) {
			return nil, nil
		}
		err := c.download(ctx, key, local)
		if c.metrics != nil {
			c.metrics.RecordCatalogDownload(kind, err)
		}
		return nil, err
	})
	if err != nil {
		return "", err
	}

	return local, nil
}

func (c *DiskCache) download(ctx context.Context, key, local string) error {
	if c.storage == nil {
		return fmt.Errorf("catalog storage is nil")
	}

	body, err := c.storage.Open(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), filepath.Base(local)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %q to cache: %w", key, err)
	}

	if err := os.Rename(tmpName, local); err != nil {
		return fmt.Errorf("move %q into cache: %w", key, err)
	}

	c.logger.Info("catalog file cached", zap.String("key", key), zap.Int64("bytes", written))
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
