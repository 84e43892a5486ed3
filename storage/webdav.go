package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	if rootPath != "" {
		if err := client.MkdirAll(rootPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create webdav root path '%s': %w", rootPath, err)
		}
	}

	return &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
	}, nil
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader, size int64) error {
	remotePath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	if err := s.client.MkdirAll(path.Dir(remotePath), 0755); err != nil {
		return fmt.Errorf("failed to create webdav directory for '%s': %w", storagePath, err)
	}

	if err := s.client.WriteStream(remotePath, file, 0644); err != nil {
		return fmt.Errorf("failed to write '%s' to webdav: %w", storagePath, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	remotePath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	stream, err := s.client.ReadStream(remotePath)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("file not found: %s", storagePath)
		}
		return nil, fmt.Errorf("failed to read '%s' from webdav: %w", storagePath, err)
	}
	return stream, nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	remotePath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	if err := s.client.Remove(remotePath); err != nil && !gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("failed to delete '%s' from webdav: %w", storagePath, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	remotePath, err := s.resolve(storagePath)
	if err != nil {
		return false, err
	}

	if _, err := s.client.Stat(remotePath); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat '%s' on webdav: %w", storagePath, err)
	}
	return true, nil
}

// ListWithPrefix 列举某前缀目录下的全部对象
func (s *WebDAVStorage) ListWithPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	remotePath, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := s.client.ReadDir(remotePath)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list '%s' on webdav: %w", prefix, err)
	}

	var objects []ObjectInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:  prefix + "/" + entry.Name(),
			Size: entry.Size(),
		})
	}
	return objects, nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	if _, err := s.client.Stat(root); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("webdav health check failed: %w", err)
	}
	return nil
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}

func (s *WebDAVStorage) resolve(storagePath string) (string, error) {
	if !IsValidStoragePath(storagePath) {
		return "", fmt.Errorf("invalid storage path: %s", storagePath)
	}
	return s.rootPath + "/" + storagePath, nil
}
