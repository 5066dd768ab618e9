// Package moderation masks banned words in chat messages before they are
// stored and fanned out.
package moderation

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches a fixed word list with an Aho-Corasick automaton built
// over folded text, so "B.4.d.g.€r" still matches "badger".
// The zero value censors nothing.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// folded is a message reduced to its matchable runes, each remembering
// its position in the original text.
type folded struct {
	runes  []rune
	origin []int
}

// NewModerator builds the automaton from words. Blank entries are ignored,
// an empty list yields a moderator that returns text unchanged.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	m := &Moderator{replacement: replacement, log: log}
	var patterns [][]rune
	for _, word := range words {
		if pattern := fold(strings.TrimSpace(word)).runes; len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}
	if len(patterns) == 0 {
		return m, nil
	}
	m.matcher = new(goahocorasick.Machine)
	if err := m.matcher.Build(patterns); err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(patterns))
	return m, nil
}

// Censor replaces every original rune covered by a match, punctuation
// inside the match included, and reports whether anything was masked.
func (m *Moderator) Censor(text string) (string, bool) {
	if m == nil || m.matcher == nil {
		return text, false
	}
	f := fold(text)
	if len(f.runes) == 0 {
		return text, false
	}
	hits := m.matcher.MultiPatternSearch(f.runes, false)
	if len(hits) == 0 {
		return text, false
	}

	out := []rune(text)
	for _, hit := range hits {
		first, last := hit.Pos, hit.Pos+len(hit.Word)-1
		if first < 0 || last >= len(f.origin) {
			continue
		}
		for i := f.origin[first]; i <= f.origin[last]; i++ {
			out[i] = m.replacement
		}
	}
	if m.log != nil {
		m.log.Debug("Message censored",
			"matches", len(hits),
			"lang", whatlanggo.Detect(text).Lang.Iso6391())
	}
	return string(out), true
}

func fold(text string) folded {
	original := []rune(text)
	f := folded{
		runes:  make([]rune, 0, len(original)),
		origin: make([]int, 0, len(original)),
	}
	for i, r := range original {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.origin = append(f.origin, i)
	}
	return f
}

// unleet maps common leet substitutions back to letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
