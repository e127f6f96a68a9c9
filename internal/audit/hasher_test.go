package audit

import (
	"strings"
	"testing"
)

func TestSHA256Hasher_Sum(t *testing.T) {
	h := &SHA256Hasher{}

	t.Run("empty input yields the empty content hash", func(t *testing.T) {
		sum, err := h.Sum(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		if sum != EmptyContentHash {
			t.Errorf("Sum() = %q, want %q", sum, EmptyContentHash)
		}
	})

	t.Run("known digest", func(t *testing.T) {
		sum, err := h.Sum(strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
		if sum != want {
			t.Errorf("Sum() = %q, want %q", sum, want)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a, _ := h.Sum(strings.NewReader("some content"))
		b, _ := h.Sum(strings.NewReader("some content"))
		if a != b {
			t.Errorf("Sum() not deterministic: %q != %q", a, b)
		}
	})
}
