package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docqa-service/internal/logger"
	"docqa-service/models"

	"github.com/xuri/excelize/v2"
)

const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "excel"
)

// SessionExport is the JSON export document.
type SessionExport struct {
	ExportDate   time.Time         `json:"export_date"`
	TotalRecords int               `json:"total_records"`
	TotalChunks  int               `json:"total_chunks"`
	Sessions     []*models.Session `json:"sessions"`
}

// ExportService renders the session registry for operators.
type ExportService struct {
	sessions *SessionService
}

func NewExportService(sessions *SessionService) *ExportService {
	return &ExportService{sessions: sessions}
}

// Export returns the rendered file, its content type and a suggested filename.
func (es *ExportService) Export(ctx context.Context, format string) ([]byte, string, string, error) {
	sessions, err := es.sessions.ListSessions(ctx)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to list sessions: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	switch strings.ToLower(format) {
	case "", ExportFormatJSON:
		data, err := exportJSON(sessions)
		if err != nil {
			return nil, "", "", err
		}
		return data, "application/json", fmt.Sprintf("sessions_%s.json", stamp), nil
	case ExportFormatExcel, "xlsx":
		data, err := exportExcel(sessions)
		if err != nil {
			return nil, "", "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fmt.Sprintf("sessions_%s.xlsx", stamp), nil
	default:
		return nil, "", "", invalidInput("unsupported export format %q", format)
	}
}

func exportJSON(sessions []*models.Session) ([]byte, error) {
	doc := SessionExport{
		ExportDate:   time.Now().UTC(),
		TotalRecords: len(sessions),
		Sessions:     sessions,
	}
	for _, s := range sessions {
		doc.TotalChunks += s.ChunkCount
	}
	return json.MarshalIndent(doc, "", "  ")
}

func exportExcel(sessions []*models.Session) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	sheet := "Sessions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Session ID", "Created At", "Files", "File Names", "Chunks", "Embedding Model", "Dimension", "Custom Prompt"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheet, cell, h)
	}

	for i, s := range sessions {
		row := i + 2
		values := []any{
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.FileCount,
			strings.Join(s.FileNames, ", "),
			s.ChunkCount,
			s.EmbeddingModel,
			s.Dimension,
			s.Prompt(),
		}
		for col, v := range values {
			cell := fmt.Sprintf("%c%d", 'A'+col, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "D", "D", 40)
	f.SetColWidth(sheet, "F", "F", 30)
	f.SetColWidth(sheet, "H", "H", 50)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
