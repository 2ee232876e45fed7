package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSeparators is the boundary cascade, most preferred first. The empty
// separator means a hard character cut. A separator stays attached to the end
// of the piece before it, so sentence terminators survive at chunk edges.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

var ErrInvalidParameters = errors.New("chunk overlap must be smaller than chunk size")

type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}, nil
}

// Split returns chunks in left-to-right order. Lengths are counted in runes.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	s, err := NewSplitter(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}

func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	separators := s.Separators
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return s.splitRecursive(text, separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" {
			separator = candidate
			break
		}
		if strings.Contains(text, candidate) {
			separator = candidate
			remaining = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.SplitAfter(text, separator)
	}

	out := make([]string, 0)
	pending := make([]string, 0)
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if runeLen(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = pending[:0]
		}
		if len(remaining) == 0 {
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, s.splitRecursive(piece, remaining)...)
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge packs small pieces into windows of at most ChunkSize runes, carrying up
// to Overlap runes of trailing pieces into the next window. Trailing whitespace
// of the newest piece does not count against the budget since chunks are
// trimmed on the way out.
func (s *Splitter) merge(pieces []string) []string {
	out := make([]string, 0)
	window := make([]string, 0)
	total := 0

	for _, piece := range pieces {
		size := runeLen(piece)
		visible := runeLen(strings.TrimRightFunc(piece, unicode.IsSpace))
		if total+visible > s.ChunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				out = append(out, chunk)
			}
			for total > s.Overlap || (total > 0 && total+visible > s.ChunkSize) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		total += size
		window = append(window, piece)
	}

	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidParameters, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidParameters, chunkSize, overlap)
	}
	return nil
}

func splitRunes(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
