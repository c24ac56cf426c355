package services

import (
	"fmt"
	"strings"
	"testing"

	"docqa-service/models"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestNewChunkerValidates(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {10, 10}, {10, 11}, {10, -1},
	} {
		if _, err := NewChunker(tc.size, tc.overlap); err == nil {
			t.Errorf("NewChunker(%d, %d) should fail", tc.size, tc.overlap)
		}
	}
}

func TestChunkerWindows(t *testing.T) {
	c, err := NewChunker(150, 40)
	if err != nil {
		t.Fatal(err)
	}
	doc := models.Document{Index: 2, Filename: "report.pdf", Pages: []string{words(400)}}
	chunks := c.Split(doc)

	// starts at 0, 110, 220, 330; the last one reaches word 400
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	for i, ch := range chunks {
		if ch.StartWord != i*110 {
			t.Errorf("chunk %d starts at %d, want %d", i, ch.StartWord, i*110)
		}
		if ch.Position != i || ch.DocumentIndex != 2 || ch.SourceName != "report.pdf" {
			t.Errorf("chunk %d has wrong provenance: %+v", i, ch)
		}
		if got := len(strings.Fields(ch.Text)); got > 150 {
			t.Errorf("chunk %d has %d words", i, got)
		}
	}
	if last := chunks[len(chunks)-1]; last.EndWord != 400 {
		t.Errorf("last chunk ends at %d, want 400", last.EndWord)
	}
	// overlap between neighbours is exactly 40 words
	if chunks[0].EndWord-chunks[1].StartWord != 40 {
		t.Errorf("overlap = %d, want 40", chunks[0].EndWord-chunks[1].StartWord)
	}
}

func TestChunkerShortAndEmptyDocuments(t *testing.T) {
	c, _ := NewChunker(150, 40)

	short := c.Split(models.Document{Filename: "s.pdf", Pages: []string{"only a few words here"}})
	if len(short) != 1 || short[0].Text != "only a few words here" {
		t.Fatalf("short document: got %+v", short)
	}

	if got := c.Split(models.Document{Filename: "e.pdf", Pages: []string{"", "   \n"}}); len(got) != 0 {
		t.Errorf("empty document produced %d chunks", len(got))
	}
}

func TestChunkerTracksPages(t *testing.T) {
	c, _ := NewChunker(3, 1)
	chunks := c.Split(models.Document{Pages: []string{"a b c", "d e f"}})

	want := []int{1, 1, 2}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, ch := range chunks {
		if ch.Page != want[i] {
			t.Errorf("chunk %d page = %d, want %d", i, ch.Page, want[i])
		}
	}
}

func TestChunkerSplitAllKeepsDocumentOrder(t *testing.T) {
	c, _ := NewChunker(5, 0)
	chunks := c.SplitAll([]models.Document{
		{Index: 0, Filename: "a.pdf", Pages: []string{words(7)}},
		{Index: 1, Filename: "b.pdf", Pages: []string{words(3)}},
	})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[2].SourceName != "b.pdf" || chunks[2].Position != 0 {
		t.Errorf("unexpected third chunk %+v", chunks[2])
	}
}
