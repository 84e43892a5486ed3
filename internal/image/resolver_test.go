package image

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/database/models"
	"github.com/retrato-app/retrato/internal/sharelink"
	"github.com/retrato-app/retrato/internal/worker"
	"gorm.io/gorm"
)

type fakeDirectory struct {
	rows map[string]*models.ShareLink
	err  error
}

func (f *fakeDirectory) GetByToken(token string) (*models.ShareLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	if row, ok := f.rows[token]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeChecker struct {
	existing map[string]bool
}

func (f *fakeChecker) Exists(ctx context.Context, storagePath string) (bool, error) {
	return f.existing[storagePath], nil
}

// memCache 仅支持 Set/Get 的测试缓存
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	b, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memCache) Close() error { return nil }
func (m *memCache) Name() string { return "test" }

func TestResolveViaDirectory(t *testing.T) {
	token := sharelink.Encode("254aa248acb47dd6", "photo.webp")
	directory := &fakeDirectory{rows: map[string]*models.ShareLink{
		token: {
			Token:       token,
			OwnerID:     "254aa248acb47dd6",
			FileName:    "photo.webp",
			StoragePath: "254aa248acb47dd6/photo.webp",
			FileSize:    1024,
			MimeType:    "image/webp",
		},
	}}
	resolver := NewResolver(directory, &fakeChecker{}, newMemCache())

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.StoragePath != "254aa248acb47dd6/photo.webp" {
		t.Errorf("StoragePath = %s", resolved.StoragePath)
	}
	if resolved.MimeType != "image/webp" || resolved.FileSize != 1024 {
		t.Errorf("metadata not carried over: %+v", resolved)
	}
}

func TestResolveViaStorageProbe(t *testing.T) {
	// 目录表无记录，但令牌可解码且对象存在
	token := sharelink.Encode("254aa248acb47dd6", "photo.webp")
	checker := &fakeChecker{existing: map[string]bool{
		"254aa248acb47dd6/photo.webp": true,
	}}
	resolver := NewResolver(&fakeDirectory{}, checker, newMemCache())

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.StoragePath != "254aa248acb47dd6/photo.webp" {
		t.Errorf("StoragePath = %s", resolved.StoragePath)
	}
	if resolved.FileName != "photo.webp" {
		t.Errorf("FileName = %s", resolved.FileName)
	}
}

func TestResolveLegacyToken(t *testing.T) {
	// 旧版令牌：左段为原始 11 位数字，历史路径以原始值为前缀
	token := sharelink.Encode("12345678901", "old.jpg")
	checker := &fakeChecker{existing: map[string]bool{
		"12345678901/old.jpg": true,
	}}
	resolver := NewResolver(&fakeDirectory{}, checker, newMemCache())

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.StoragePath != "12345678901/old.jpg" {
		t.Errorf("StoragePath = %s", resolved.StoragePath)
	}
}

func TestResolveViaBackupCache(t *testing.T) {
	token := sharelink.Encode("254aa248acb47dd6", "photo.webp")
	c := newMemCache()
	entry := worker.BackupEntry{
		OwnerID:     "254aa248acb47dd6",
		FileName:    "photo.webp",
		StoragePath: "254aa248acb47dd6/photo.webp",
		MimeType:    "image/webp",
	}
	if err := c.Set(context.Background(), cache.ShareBackup.BuildID(token), entry, time.Hour); err != nil {
		t.Fatal(err)
	}

	// 目录无记录、存储探测不中，备份缓存兜底
	resolver := NewResolver(&fakeDirectory{}, &fakeChecker{}, c)

	resolved, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.StoragePath != "254aa248acb47dd6/photo.webp" {
		t.Errorf("StoragePath = %s", resolved.StoragePath)
	}
	if resolved.MimeType != "image/webp" {
		t.Errorf("MimeType = %s", resolved.MimeType)
	}
}

func TestResolveNotFound(t *testing.T) {
	resolver := NewResolver(&fakeDirectory{}, &fakeChecker{}, newMemCache())

	tests := []string{
		sharelink.Encode("254aa248acb47dd6", "missing.webp"),
		"!!!not-a-token!!!",
		"",
	}
	for _, token := range tests {
		if _, err := resolver.Resolve(context.Background(), token); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotFound", token, err)
		}
	}
}

func TestResolveDirectoryError(t *testing.T) {
	directory := &fakeDirectory{err: errors.New("connection refused")}
	resolver := NewResolver(directory, &fakeChecker{}, newMemCache())

	_, err := resolver.Resolve(context.Background(), "any")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("directory failure should surface as an error, got %v", err)
	}
}
