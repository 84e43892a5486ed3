package image

import (
	"context"
	"testing"
)

func TestGalleryVersionBump(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	if v := currentGalleryVersion(ctx, c, "owner-a"); v != 1 {
		t.Errorf("initial version = %d, want 1", v)
	}

	bumpGalleryVersion(ctx, c, "owner-a")
	if v := currentGalleryVersion(ctx, c, "owner-a"); v != 2 {
		t.Errorf("version after bump = %d, want 2", v)
	}

	bumpGalleryVersion(ctx, c, "owner-a")
	if v := currentGalleryVersion(ctx, c, "owner-a"); v != 3 {
		t.Errorf("version after second bump = %d, want 3", v)
	}

	// 版本号按所有者隔离
	if v := currentGalleryVersion(ctx, c, "owner-b"); v != 1 {
		t.Errorf("other owner version = %d, want 1", v)
	}
}

func TestShareURL(t *testing.T) {
	got := ShareURL("https://img.example.com", "abc123")
	want := "https://img.example.com/image/abc123"
	if got != want {
		t.Errorf("ShareURL = %s, want %s", got, want)
	}
}
