package transcript

import (
	"fmt"
	"strings"

	"lectern/internal/services"
)

const (
	// DefaultMaxChunkChars is the character budget that triggers a chunk flush.
	DefaultMaxChunkChars = 1200
	// DefaultChunkOverlap is how many trailing segments carry into the next chunk.
	DefaultChunkOverlap = 1
)

// BuildChunks groups segments into retrieval chunks. Segments accumulate until
// the running character total reaches maxChars; the flushed chunk keeps every
// buffered segment, so a chunk may run over the budget by its final segment.
// The last overlap segments seed the next chunk so context spans boundaries.
func BuildChunks(segments []Segment, maxChars, overlap int) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, services.Wrap(services.ErrValidation, "transcript", "build chunks",
			fmt.Sprintf("max chars must be positive, got %d", maxChars), nil)
	}
	if overlap < 0 {
		return nil, services.Wrap(services.ErrValidation, "transcript", "build chunks",
			fmt.Sprintf("overlap must not be negative, got %d", overlap), nil)
	}

	chunks := make([]Chunk, 0)
	buffer := make([]Segment, 0)
	bufferChars := 0

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		parts := make([]string, 0, len(buffer))
		for _, seg := range buffer {
			if seg.Text != "" {
				parts = append(parts, strings.TrimSpace(seg.Text))
			}
		}
		segmentIDs := make([]int, len(buffer))
		for i, seg := range buffer {
			segmentIDs[i] = seg.SegmentID
		}
		chunks = append(chunks, Chunk{
			ID:         len(chunks),
			Text:       strings.Join(parts, " "),
			Start:      buffer[0].Start,
			End:        buffer[len(buffer)-1].End,
			SegmentIDs: segmentIDs,
		})
		if overlap > 0 {
			keep := overlap
			if keep > len(buffer) {
				keep = len(buffer)
			}
			buffer = append(buffer[:0:0], buffer[len(buffer)-keep:]...)
			bufferChars = 0
			for _, seg := range buffer {
				bufferChars += len(seg.Text)
			}
		} else {
			buffer = buffer[:0]
			bufferChars = 0
		}
	}

	for _, segment := range segments {
		if segment.End < segment.Start {
			return nil, services.Wrap(services.ErrValidation, "transcript", "build chunks",
				fmt.Sprintf("segment %d ends before it starts", segment.SegmentID), nil)
		}
		buffer = append(buffer, segment)
		bufferChars += len(segment.Text)
		if bufferChars >= maxChars {
			flush()
		}
	}

	flush()
	return chunks, nil
}
