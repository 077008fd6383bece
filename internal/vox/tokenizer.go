package vox

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrTooManyWords = errors.New("message has too many words")
	ErrUnknownSet   = errors.New("unknown sound set")
)

var clipExtensions = []string{".wav", ".mp3", ".ogg", ".opus"}

var digitWords = map[rune]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

var stripRegex = regexp.MustCompile(`[^a-z0-9 ]+`)

type Token struct {
	Word    string `json:"word"`
	Clip    string `json:"-"`
	Matched bool   `json:"matched"`
}

// Library resolves words to clip files under a sound-set directory tree:
// <root>/<set>/<word>.<ext>. Lookups hit the filesystem so freshly uploaded
// clips are picked up without a restart.
type Library struct {
	root     string
	maxWords int
}

func NewLibrary(root string, maxWords int) *Library {
	if maxWords <= 0 {
		maxWords = 64
	}
	return &Library{root: root, maxWords: maxWords}
}

func (l *Library) HasSet(set string) bool {
	if set == "" || strings.ContainsAny(set, `/\`) {
		return false
	}
	info, err := os.Stat(filepath.Join(l.root, set))
	return err == nil && info.IsDir()
}

// Tokenize splits a message into words and resolves each against the set's
// clips. Digits are spelled out one clip per digit. The token order matches
// the spoken order; unmatched words stay in the result so previews can show
// what would be skipped.
func (l *Library) Tokenize(set, message string) ([]Token, error) {
	words, err := SplitWords(message, l.maxWords)
	if err != nil {
		return nil, err
	}
	if !l.HasSet(set) {
		return nil, ErrUnknownSet
	}

	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		clip := l.findClip(set, word)
		tokens = append(tokens, Token{Word: word, Clip: clip, Matched: clip != ""})
	}
	return tokens, nil
}

func (l *Library) findClip(set, word string) string {
	for _, ext := range clipExtensions {
		path := filepath.Join(l.root, set, word+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// SplitWords normalizes a message into lookup words: lowercase, punctuation
// stripped, digits spelled out individually.
func SplitWords(message string, maxWords int) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = stripRegex.ReplaceAllString(normalized, " ")

	var words []string
	for _, field := range strings.Fields(normalized) {
		if isNumeric(field) {
			for _, digit := range field {
				words = append(words, digitWords[digit])
			}
			continue
		}
		words = append(words, field)
	}
	if len(words) == 0 {
		return nil, ErrEmptyMessage
	}
	if maxWords > 0 && len(words) > maxWords {
		return nil, ErrTooManyWords
	}
	return words, nil
}

func isNumeric(word string) bool {
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(word) > 0
}

func MatchedClips(tokens []Token) []string {
	clips := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token.Matched {
			clips = append(clips, token.Clip)
		}
	}
	return clips
}
