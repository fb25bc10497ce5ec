// Package chunker splits free text into overlapping, bounded chunks for
// embedding and retrieval.
//
// Splitting is deterministic: the same input always produces the same
// chunks. Boundaries prefer natural breakpoints in descending order —
// paragraph, line, sentence, word — falling back to keeping an
// unsplittable unit intact when a single word exceeds the chunk size
// (lossless beats strict sizing). Every chunk is an exact substring of
// the input, so every input byte appears in at least one chunk.
package chunker

import (
	"errors"
	"strings"
)

// Default splitting parameters, matching the ingestion defaults.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Sentinel errors for invalid splitter construction and input.
var (
	// ErrEmptyInput indicates the text to split is empty or whitespace-only.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates a negative overlap or one that is not
	// smaller than the chunk size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")
)

// separators are tried in order when a region exceeds the chunk size.
// Each level splits after the separator so chunks keep their original
// whitespace and reconstruct the input exactly.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces overlapping chunks of bounded size.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter. chunkSize must be positive and overlap must be
// non-negative and strictly smaller than chunkSize.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// span is a half-open byte range into the input text.
type span struct {
	start, end int
}

// Split divides text into chunks of at most the configured chunk size,
// with adjacent chunks overlapping by up to the configured overlap.
// Returns ErrEmptyInput for empty or whitespace-only text.
//
// A single unit that cannot be split further (a word longer than the
// chunk size) is emitted intact even though it exceeds the limit.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	units := make([]span, 0, len(text)/s.chunkSize+1)
	descend(text, span{0, len(text)}, s.chunkSize, 0, &units)

	return s.assemble(text, units), nil
}

// descend recursively splits sp at progressively finer separators until
// each unit fits within limit or no separator remains.
func descend(text string, sp span, limit, level int, out *[]span) {
	if sp.end-sp.start <= limit || level >= len(separators) {
		*out = append(*out, sp)
		return
	}

	parts := cutAfter(text, sp, separators[level])
	if len(parts) == 1 {
		// Separator absent at this level; try the next finer one.
		descend(text, sp, limit, level+1, out)
		return
	}
	for _, p := range parts {
		descend(text, p, limit, level+1, out)
	}
}

// cutAfter splits sp into subspans, each ending immediately after an
// occurrence of sep. The separator stays attached to the preceding part
// so the parts concatenate back to the original region.
func cutAfter(text string, sp span, sep string) []span {
	var parts []span
	start := sp.start
	for start < sp.end {
		i := strings.Index(text[start:sp.end], sep)
		if i < 0 {
			parts = append(parts, span{start, sp.end})
			break
		}
		end := start + i + len(sep)
		parts = append(parts, span{start, end})
		start = end
	}
	return parts
}

// assemble greedily packs consecutive units into chunks of at most
// chunkSize bytes, then starts each following chunk up to overlap bytes
// before the end of the previous one, snapped to a unit boundary.
func (s *Splitter) assemble(text string, units []span) []string {
	var chunks []string
	i := 0
	prevEnd := -1
	for i < len(units) {
		j := i
		for j+1 < len(units) && units[j+1].end-units[i].start <= s.chunkSize {
			j++
		}
		end := units[j].end

		if end <= prevEnd {
			// The next unit is oversized and would not fit alongside the
			// overlap tail; drop the overlap and emit it on its own.
			i = j + 1
			continue
		}

		chunks = append(chunks, text[units[i].start:end])
		prevEnd = end

		if j+1 >= len(units) {
			break
		}

		k := j + 1
		for k-1 > i && end-units[k-1].start <= s.overlap {
			k--
		}
		i = k
	}
	return chunks
}
