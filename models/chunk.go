package models

// Chunk is a contiguous window of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	Text          string `bson:"text" json:"text"`
	DocumentIndex int    `bson:"document_index" json:"document_index"`
	SourceName    string `bson:"source_name" json:"source_name"`
	Position      int    `bson:"position" json:"position"` // ordinal within its document
	StartWord     int    `bson:"start_word" json:"start_word"`
	EndWord       int    `bson:"end_word" json:"end_word"`
	Page          int    `bson:"page,omitempty" json:"page,omitempty"`
}

// ScoredChunk is a chunk paired with a similarity or relevance score.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
