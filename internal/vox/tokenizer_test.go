package vox

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		maxWords int
		want     []string
		wantErr  error
	}{
		{
			name:    "lowercase and punctuation",
			message: "Warning, INTRUDER detected!",
			want:    []string{"warning", "intruder", "detected"},
		},
		{
			name:    "digits spelled out",
			message: "sector 42",
			want:    []string{"sector", "four", "two"},
		},
		{
			name:    "mixed alphanumeric kept whole",
			message: "b4 sector",
			want:    []string{"b4", "sector"},
		},
		{
			name:    "empty after stripping",
			message: "!!! ???",
			wantErr: ErrEmptyMessage,
		},
		{
			name:     "too many words",
			message:  "one two three",
			maxWords: 2,
			wantErr:  ErrTooManyWords,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			maxWords := tc.maxWords
			if maxWords == 0 {
				maxWords = 64
			}
			got, err := SplitWords(tc.message, maxWords)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func writeClip(t *testing.T, root, set, name string) {
	t.Helper()
	dir := filepath.Join(root, set)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("clip"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
}

func TestTokenize(t *testing.T) {
	root := t.TempDir()
	writeClip(t, root, "default", "warning.wav")
	writeClip(t, root, "default", "four.ogg")
	writeClip(t, root, "default", "two.ogg")

	library := NewLibrary(root, 16)

	tokens, err := library.Tokenize("default", "Warning: unknown 42")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d", len(tokens))
	}

	wantMatched := []bool{true, false, true, true}
	for i, token := range tokens {
		if token.Matched != wantMatched[i] {
			t.Fatalf("token %d (%s): expected matched=%t", i, token.Word, wantMatched[i])
		}
	}

	clips := MatchedClips(tokens)
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
}

func TestTokenizeUnknownSet(t *testing.T) {
	library := NewLibrary(t.TempDir(), 16)
	if _, err := library.Tokenize("missing", "hello"); !errors.Is(err, ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}
	if library.HasSet("../etc") {
		t.Fatalf("path traversal must not resolve a set")
	}
}
