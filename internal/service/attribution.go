package service

import (
	"strings"

	"github.com/lumistudy/tutorai/internal/domain"
)

const (
	// attributionShingleSize is the word-window compared between chunk text
	// and answer text.
	attributionShingleSize = 5
	// attributionMinShingles is how many distinct windows must overlap
	// before a source is credited on text evidence alone.
	attributionMinShingles = 2
)

// Attributor decides which of the prompt's sources a generated answer
// actually drew on. It only credits a source on positive evidence: either
// the model cited it on a trailing "References:" line, or enough of the
// chunk's wording surfaces verbatim in the answer. When neither signal is
// present the source is dropped, so the result is always a subset of the
// candidates and may be empty.
type Attributor struct{}

func NewAttributor() *Attributor {
	return &Attributor{}
}

// Attribute returns the credited sources in candidate order.
func (a *Attributor) Attribute(answer string, candidates []domain.RetrievalResult) []domain.Source {
	if answer == "" || len(candidates) == 0 {
		return []domain.Source{}
	}

	cited := referencedTitles(answer)
	body := normalizeText(stripReferenceLine(answer))

	attributed := make([]domain.Source, 0, len(candidates))
	for _, candidate := range candidates {
		if isCited(candidate.Chunk.SourceTitle, cited) || sharesWording(body, candidate.Chunk.Text) {
			attributed = append(attributed, domain.SourceFromChunk(candidate.Chunk))
		}
	}

	return attributed
}

// referencedTitles parses the trailing "References:" line, if any, into
// normalized title entries.
func referencedTitles(answer string) []string {
	line := referenceLine(answer)
	if line == "" {
		return nil
	}

	raw := strings.TrimSpace(line[len("references:"):])
	var titles []string
	for _, entry := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		entry = normalizeText(strings.Trim(entry, " .[]\"'"))
		if entry != "" {
			titles = append(titles, entry)
		}
	}
	return titles
}

func referenceLine(answer string) string {
	lines := strings.Split(answer, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "references:") {
			return line
		}
		return ""
	}
	return ""
}

func stripReferenceLine(answer string) string {
	line := referenceLine(answer)
	if line == "" {
		return answer
	}
	idx := strings.LastIndex(answer, line)
	if idx < 0 {
		return answer
	}
	return answer[:idx]
}

func isCited(title string, cited []string) bool {
	normalized := normalizeText(title)
	if normalized == "" {
		return false
	}
	for _, entry := range cited {
		if entry == normalized || strings.Contains(entry, normalized) || strings.Contains(normalized, entry) {
			return true
		}
	}
	return false
}

// sharesWording reports whether enough distinct word windows from the chunk
// appear verbatim in the answer body.
func sharesWording(body, chunkText string) bool {
	words := strings.Fields(normalizeText(chunkText))
	if len(words) < attributionShingleSize {
		return false
	}

	matched := make(map[string]bool)
	for i := 0; i+attributionShingleSize <= len(words); i++ {
		shingle := strings.Join(words[i:i+attributionShingleSize], " ")
		if matched[shingle] {
			continue
		}
		if strings.Contains(body, shingle) {
			matched[shingle] = true
			if len(matched) >= attributionMinShingles {
				return true
			}
		}
	}
	return false
}

// normalizeText lowercases, drops punctuation, and collapses whitespace so
// minor formatting differences do not break matching.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r > 127:
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
