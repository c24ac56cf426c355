package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"docqa-service/models"
)

// buildPDF writes a single-font PDF with one page per entry in pages.
func buildPDF(pages ...string) []byte {
	var objects []string
	n := len(pages)
	// 1 catalog, 2 page tree, 3 font, then page/content pairs
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFLoaderExtractsPages(t *testing.T) {
	root := t.TempDir()
	loader := NewPDFLoader(root)

	docs, err := loader.Load(context.Background(), "abc", []models.UploadedFile{
		{Filename: "first.pdf", Content: buildPDF("Hello world")},
		{Filename: "SECOND.PDF", Content: buildPDF("Alpha page", "Beta page")},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Index != 0 || docs[0].Filename != "first.pdf" {
		t.Errorf("unexpected first document %+v", docs[0])
	}
	if !strings.Contains(docs[0].Text(), "Hello") {
		t.Errorf("first document text %q does not contain Hello", docs[0].Text())
	}
	if docs[1].Index != 1 || !strings.Contains(docs[1].Text(), "Beta") {
		t.Errorf("unexpected second document %+v", docs[1])
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir not cleaned up: %d entries left", len(entries))
	}
}

func TestPDFLoaderRejectsNonPDF(t *testing.T) {
	root := t.TempDir()
	loader := NewPDFLoader(root)

	_, err := loader.Load(context.Background(), "abc", []models.UploadedFile{
		{Filename: "notes.txt", Content: []byte("plain text")},
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v, want ErrUnsupportedFormat", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("nothing should be staged for a rejected upload")
	}
}

func TestPDFLoaderCleansUpOnFailure(t *testing.T) {
	root := t.TempDir()
	loader := NewPDFLoader(root)

	_, err := loader.Load(context.Background(), "abc", []models.UploadedFile{
		{Filename: "broken.pdf", Content: []byte("this is not a pdf")},
	})
	if err == nil {
		t.Fatal("expected an error for a malformed PDF")
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("staging dir not cleaned up after failure")
	}
}

func TestIsPDF(t *testing.T) {
	cases := map[string]bool{
		"a.pdf":      true,
		"B.PDF":      true,
		"c.Pdf":      true,
		"d.txt":      false,
		"pdf":        false,
		"e.pdf.docx": false,
	}
	for name, want := range cases {
		if got := IsPDF(name); got != want {
			t.Errorf("IsPDF(%q) = %v, want %v", name, got, want)
		}
	}
}
