package models

import (
	"strings"
	"time"
)

// Session is one upload's worth of indexed documents plus the settings used to query them.
type Session struct {
	ID             string    `bson:"_id" json:"session_id"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	FileCount      int       `bson:"file_count" json:"file_count"`
	FileNames      []string  `bson:"file_names" json:"file_names"`
	Collection     string    `bson:"collection" json:"collection"`
	CustomPrompt   *string   `bson:"custom_prompt,omitempty" json:"custom_prompt"`
	EmbeddingModel string    `bson:"embedding_model" json:"embedding_model"`
	Dimension      int       `bson:"dimension" json:"dimension"`
	ChunkCount     int       `bson:"chunk_count" json:"chunk_count"`
}

// CollectionPrefix marks vector collections owned by sessions.
const CollectionPrefix = "session_"

// CollectionName derives the vector collection owned by a session.
func CollectionName(sessionID string) string {
	return CollectionPrefix + sessionID
}

// Prompt returns the session's instruction override, or "" when none is set.
func (s *Session) Prompt() string {
	if s.CustomPrompt == nil {
		return ""
	}
	return *s.CustomPrompt
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.FileNames = append([]string(nil), s.FileNames...)
	if s.CustomPrompt != nil {
		p := *s.CustomPrompt
		c.CustomPrompt = &p
	}
	return &c
}

// UploadedFile is a raw upload handed to the loader.
type UploadedFile struct {
	Filename string
	Content  []byte
}

// Document is the extracted text of one uploaded file.
type Document struct {
	Index    int      `json:"index"`
	Filename string   `json:"filename"`
	Pages    []string `json:"pages"` // ordered text units, one per page
	Method   string   `json:"method"`
}

// Text joins the document's pages.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

// Answer is the result of one question against a session. Not persisted.
type Answer struct {
	SessionID string        `json:"session_id"`
	Question  string        `json:"question"`
	Content   string        `json:"content"`
	Sources   []ScoredChunk `json:"sources,omitempty"`
}

// CleanupResult reports what happened to a session's vector collection on release.
type CleanupResult struct {
	Collection string `json:"collection"`
	Released   bool   `json:"released"`
	Retried    bool   `json:"retried"` // handed to the background queue
	Err        error  `json:"-"`
}
