// Package transcript defines timestamped transcript segments, fixed-budget
// chunking for retrieval, and the on-disk transcript artifact layout.
package transcript

// Segment is one timestamped utterance from the speech recognizer. Times are
// seconds from the start of the recording.
type Segment struct {
	SegmentID int      `json:"segment_id"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
}

// Chunk groups consecutive segments into a retrieval unit. IDs are assigned
// by output position.
type Chunk struct {
	ID         int     `json:"id"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SegmentIDs []int   `json:"segment_ids"`
}
