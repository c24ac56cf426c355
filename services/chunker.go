package services

import (
	"fmt"
	"strings"

	"docqa-service/models"
)

// Chunker splits documents into overlapping word windows. Consecutive chunks
// of a document start size-overlap words apart; the last chunk ends at the
// document's last word.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// SplitAll chunks every document, preserving document order.
func (c *Chunker) SplitAll(docs []models.Document) []models.Chunk {
	var out []models.Chunk
	for _, d := range docs {
		out = append(out, c.Split(d)...)
	}
	return out
}

func (c *Chunker) Split(doc models.Document) []models.Chunk {
	var words []string
	var pageOf []int
	for p, text := range doc.Pages {
		for _, w := range strings.Fields(text) {
			words = append(words, w)
			pageOf = append(pageOf, p+1)
		}
	}
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []models.Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.Chunk{
			Text:          strings.Join(words[start:end], " "),
			DocumentIndex: doc.Index,
			SourceName:    doc.Filename,
			Position:      len(chunks),
			StartWord:     start,
			EndWord:       end,
			Page:          pageOf[start],
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
