package crypto

import (
	"strings"
	"testing"
)

func TestGenerateRecoveryKey_Shape(t *testing.T) {
	t.Parallel()

	known := make(map[string]struct{}, len(wordList))
	for _, w := range wordList {
		known[w] = struct{}{}
	}

	phrase, err := GenerateRecoveryKey()
	if err != nil {
		t.Fatalf("GenerateRecoveryKey: %v", err)
	}
	words := strings.Split(phrase, "-")
	if len(words) != RecoveryWords {
		t.Fatalf("got %d words, want %d: %q", len(words), RecoveryWords, phrase)
	}
	for _, w := range words {
		if _, ok := known[w]; !ok {
			t.Fatalf("word %q not in list", w)
		}
	}

	other, _ := GenerateRecoveryKey()
	if other == phrase {
		t.Fatalf("two consecutive phrases are equal")
	}
}

func TestWordList_UniqueAndHyphenFree(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, len(wordList))
	for _, w := range wordList {
		if w == "" || strings.Contains(w, "-") {
			t.Fatalf("bad word %q", w)
		}
		if seen[w] {
			t.Fatalf("duplicate word %q", w)
		}
		seen[w] = true
	}
}
