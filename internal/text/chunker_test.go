package text

import (
	"errors"
	"reflect"
	"testing"

	"github.com/porsa-ai/porsa/internal/domain"
)

func TestChunk_SlidingWindows(t *testing.T) {
	got, err := Chunk("a b c d e f", 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a b c", "c d e", "e f"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %v, want %v", got, want)
	}
}

func TestChunk_ConsecutiveChunksShareOverlap(t *testing.T) {
	got, err := Chunk("a b c d e f g h", 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a b c d", "c d e f", "e f g h"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %v, want %v", got, want)
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	got, err := Chunk("", 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Chunk(empty) = %v, want nil", got)
	}
}

func TestChunk_ShorterThanSize(t *testing.T) {
	got, err := Chunk("a b", 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %v, want %v", got, want)
	}
}

func TestChunk_StrideGuard(t *testing.T) {
	for _, overlap := range []int{3, 4} {
		if _, err := Chunk("a b c d", 3, overlap); !errors.Is(err, domain.ErrInvalidChunking) {
			t.Errorf("Chunk(size=3, overlap=%d) error = %v, want ErrInvalidChunking", overlap, err)
		}
	}
}

func TestChunk_RejectsNonPositiveSize(t *testing.T) {
	if _, err := Chunk("a b c", 0, 0); !errors.Is(err, domain.ErrInvalidChunking) {
		t.Errorf("Chunk(size=0) error = %v, want ErrInvalidChunking", err)
	}
	if _, err := Chunk("a b c", 3, -1); !errors.Is(err, domain.ErrInvalidChunking) {
		t.Errorf("Chunk(overlap=-1) error = %v, want ErrInvalidChunking", err)
	}
}

func TestChunk_NoOverlap(t *testing.T) {
	got, err := Chunk("a b c d e", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a b", "c d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %v, want %v", got, want)
	}
}

func TestTokenize_TrimsPunctuation(t *testing.T) {
	got := Tokenize("hello, world! (test)")
	want := []string{"hello", "world", "test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenize_PersianPunctuation(t *testing.T) {
	got := Tokenize("سلام، دنیا؟")
	want := []string{"سلام", "دنیا"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenize_KeepsInnerZWNJ(t *testing.T) {
	// "می‌رود" contains a ZWNJ joining the prefix; it must stay one word.
	got := Tokenize("می‌رود")
	if len(got) != 1 || got[0] != "می‌رود" {
		t.Errorf("Tokenize() = %v, want single word with inner ZWNJ", got)
	}
}
