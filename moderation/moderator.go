// Package moderation masks forbidden words in user submitted text before it
// is persisted. Matching runs on a normalized view of the input so spacing,
// punctuation and leet substitutions do not defeat the word list.
package moderation

import (
	"bufio"
	"bytes"
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// runeMapping tracks, for every rune kept in the normalized text, where it
// sat in the original input, so a match can be masked in place.
type runeMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. An empty list yields a moderator that passes everything through.
func NewModerator(words []string, mask rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		normalized := normalizeRunes([]rune(word))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		log.Warn("moderation word list is empty, nothing will be censored")
		return &Moderator{mask: mask}, nil
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	log.Debug("moderation automaton ready", "patterns", len(patterns))
	return &Moderator{matcher: machine, mask: mask}, nil
}

// ParseWords reads one forbidden word per line, skipping blanks and
// '#' comments.
func ParseWords(raw []byte) []string {
	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}

// Censor replaces every match with the mask rune, original spacing and
// punctuation included, so the output keeps the input's length.
func (m *Moderator) Censor(original string) string {
	if m.matcher == nil {
		return original
	}
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.mask
		}
	}
	return string(origRunes)
}

// Language guesses the ISO 639-1 code of the content, for moderation logs
// and statistics. Empty when the detector cannot tell.
func Language(content string) string {
	info := whatlanggo.Detect(content)
	return info.Lang.Iso6391()
}

func normalize(input string) runeMapping {
	origRunes := []rune(input)
	mapping := runeMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		folded := foldRune(r)
		if skippable(folded) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(folded))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		folded := foldRune(r)
		if skippable(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
	}
	return out
}

// foldRune maps the usual leet substitutions back to their letter.
func foldRune(r rune) rune {
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

// skippable marks the runes the matcher should not see at all.
func skippable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
