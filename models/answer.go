package models

import "time"

// Citation points from a generated answer back to a supporting chunk.
type Citation struct {
	ChunkID   string `json:"chunk_id"`
	PageIndex int    `json:"page_index"`
}

// Answer is the result of one retrieval-QA run. Citations are ordered by the
// relevance of the chunks that were packed into the generation context.
// LowSupport is set when retrieval found nothing above the relevance
// threshold; such answers carry no citations.
type Answer struct {
	QuestionID  string     `json:"question_id"`
	Question    string     `json:"question"`
	Text        string     `json:"text"`
	Citations   []Citation `json:"citations"`
	LowSupport  bool       `json:"low_support"`
	GeneratedAt time.Time  `json:"generated_at"`
}
