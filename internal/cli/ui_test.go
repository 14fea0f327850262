package cli

import (
	"strings"
	"testing"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{9999, "9999"},
		{12_345, "12.3k"},
		{2_500_000, "2.5M"},
		{3_000_000_000, "3.0G"},
	}
	for _, tt := range tests {
		if got := formatCount(tt.n); got != tt.want {
			t.Errorf("formatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatHistogram(t *testing.T) {
	got := formatHistogram(map[int]int{3: 1, 1: 2})
	if got != "1 batch × 2, 3 batches × 1" {
		t.Errorf("formatHistogram = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(0.5, 10); !strings.HasSuffix(got, " 50.0%") {
		t.Errorf("progressBar(0.5) = %q", got)
	}
	if got := progressBar(1.2, 4); strings.Count(got, "░") != 0 {
		t.Errorf("progressBar over 1 has empty cells: %q", got)
	}
}
