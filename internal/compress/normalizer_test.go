package compress

import (
	"testing"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		max        int
		wantWidth  int
		wantHeight int
	}{
		{"no scaling needed", 800, 600, 1920, 800, 600},
		{"exactly at limit", 1920, 1080, 1920, 1920, 1080},
		{"landscape scaled", 3840, 2160, 1920, 1920, 1080},
		{"portrait scaled", 2160, 3840, 1920, 1080, 1920},
		{"square scaled", 4000, 4000, 1920, 1920, 1920},
		{"extreme aspect ratio", 10000, 10, 1920, 1920, 1},
		{"zero max disables scaling", 3840, 2160, 0, 3840, 2160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.width, tt.height, tt.max)
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("FitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.width, tt.height, tt.max, w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestTargetFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		format   string
		expected string
	}{
		{"png to webp", "photo.png", "webp", "photo.webp"},
		{"jpeg output", "photo.png", "jpeg", "photo.jpg"},
		{"no extension", "photo", "webp", "photo.webp"},
		{"path stripped", "dir/sub/photo.png", "webp", "photo.webp"},
		{"empty base", ".png", "webp", "image.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := targetFileName(tt.input, tt.format); got != tt.expected {
				t.Errorf("targetFileName(%q, %q) = %q, want %q", tt.input, tt.format, got, tt.expected)
			}
		})
	}
}
