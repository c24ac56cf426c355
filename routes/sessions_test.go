package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa-service/internal/ai"
	"docqa-service/internal/config"
	"docqa-service/internal/store"
	"docqa-service/internal/vectorstore"
	"docqa-service/models"
	"docqa-service/services"

	"github.com/gin-gonic/gin"
)

type plainTextLoader struct{}

func (plainTextLoader) Load(_ context.Context, _ string, files []models.UploadedFile) ([]models.Document, error) {
	docs := make([]models.Document, len(files))
	for i, f := range files {
		docs[i] = models.Document{Index: i, Filename: f.Filename, Pages: []string{string(f.Content)}}
	}
	return docs, nil
}

type constEmbedder struct{}

func (constEmbedder) Name() string { return "const" }

func (constEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1, float32(len(text) % 7), 0.5}, nil
}

// echoGenerator answers "Springfield" when the context holds it.
type echoGenerator struct{}

func (echoGenerator) Name() string { return "echo" }

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	q := prompt[strings.LastIndex(prompt, "Q: "):]
	if strings.Contains(q, "capital") && strings.Contains(prompt, "Springfield") {
		return "Springfield", nil
	}
	return "Not specified in the document.", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	chain, err := ai.NewEmbedderChain(ai.EmbedderConfig{Primary: constEmbedder{}})
	if err != nil {
		t.Fatal(err)
	}
	chunker, err := services.NewChunker(150, 40)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := services.NewSessionService(services.SessionDeps{
		Store:     store.NewMemory(),
		Index:     vectorstore.NewMemory(),
		Loader:    plainTextLoader{},
		Chunker:   chunker,
		Embedders: chain,
		Generator: echoGenerator{},
		Prompts:   services.NewPromptAssembler("Answer from the context.", config.DefaultFallbackPhrase),
		MaxFiles:  5,
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		GinMode:     gin.TestMode,
		CORSOrigins: []string{"*"},
		MaxFileSize: 1 << 20,
	}
	return NewRouter(cfg, RouterDeps{Sessions: svc})
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func do(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return do(router, method, path, bytes.NewBuffer(data), "application/json")
}

func createSession(t *testing.T, router *gin.Engine, files map[string]string) string {
	t.Helper()
	body, ct := multipartBody(t, "files", files)
	rec := do(router, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.SessionID == "" {
		t.Fatalf("upload: bad response %s", rec.Body.String())
	}
	return resp.SessionID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad error body %s", rec.Body.String())
	}
	return resp.ErrorCode
}

func TestUploadAndAsk(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router, map[string]string{"capital.pdf": "The capital is Springfield."})

	rec := doJSON(router, http.MethodPost, "/ask/"+id, gin.H{"question": "What is the capital?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: status %d body %s", rec.Code, rec.Body.String())
	}
	var ans struct {
		Content string `json:"content"`
	}
	json.Unmarshal(rec.Body.Bytes(), &ans)
	if !strings.Contains(ans.Content, "Springfield") {
		t.Errorf("got %q", ans.Content)
	}

	rec = doJSON(router, http.MethodPost, "/sessions/"+id+"/ask", gin.H{"question": "What is the boiling point of mercury?"})
	json.Unmarshal(rec.Body.Bytes(), &ans)
	if ans.Content != config.DefaultFallbackPhrase {
		t.Errorf("got %q, want fallback phrase", ans.Content)
	}
}

func TestUploadValidation(t *testing.T) {
	router := newTestRouter(t)

	body, ct := multipartBody(t, "files", map[string]string{"notes.txt": "hello"})
	rec := do(router, http.MethodPost, "/sessions", body, ct)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_input" {
		t.Errorf("non-PDF: status %d body %s", rec.Code, rec.Body.String())
	}

	body, ct = multipartBody(t, "other", map[string]string{"a.pdf": "x"})
	rec = do(router, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing files: status %d", rec.Code)
	}

	body, ct = multipartBody(t, "file", map[string]string{"blank.pdf": "   "})
	rec = do(router, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != "indexing_error" {
		t.Errorf("no text: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(router, http.MethodPost, "/upload", bytes.NewBufferString("{}"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("not multipart: status %d", rec.Code)
	}
}

func TestAskErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/ask/unknown", gin.H{"question": "anything"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status %d", rec.Code)
	}

	id := createSession(t, router, map[string]string{"a.pdf": "The capital is Springfield."})
	rec = doJSON(router, http.MethodPost, "/ask/"+id, gin.H{"question": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank question: status %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/ask/"+id, bytes.NewBufferString("{not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", rec.Code)
	}
}

func TestSessionMetadataPromptAndDelete(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router, map[string]string{"a.pdf": "The capital is Springfield.", "b.pdf": "Other text."})

	rec := do(router, http.MethodGet, "/sessions/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata: status %d", rec.Code)
	}
	var meta models.Session
	json.Unmarshal(rec.Body.Bytes(), &meta)
	if meta.ID != id || meta.FileCount != 2 || meta.CustomPrompt != nil {
		t.Errorf("unexpected metadata %+v", meta)
	}

	rec = doJSON(router, http.MethodPost, "/sessions/"+id+"/prompt", gin.H{"custom_prompt": "Be terse."})
	if rec.Code != http.StatusOK {
		t.Fatalf("set prompt: status %d", rec.Code)
	}
	rec = do(router, http.MethodGet, "/sessions/"+id, nil, "")
	json.Unmarshal(rec.Body.Bytes(), &meta)
	if meta.Prompt() != "Be terse." {
		t.Errorf("prompt not stored: %+v", meta)
	}

	rec = do(router, http.MethodGet, "/sessions", nil, "")
	var list struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("list total = %d", list.Total)
	}

	rec = do(router, http.MethodDelete, "/sessions/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(router, http.MethodPost, "/ask/"+id, gin.H{"question": "What is the capital?"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("ask after delete: status %d", rec.Code)
	}
	rec = do(router, http.MethodDelete, "/sessions/"+id, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d", rec.Code)
	}
	rec = doJSON(router, http.MethodPost, "/sessions/"+id+"/prompt", gin.H{"custom_prompt": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("prompt on deleted session: status %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	createSession(t, router, map[string]string{"a.pdf": "text"})

	for _, path := range []string{"/health", "/info"} {
		rec := do(router, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var resp struct {
			Status         string `json:"status"`
			ActiveSessions int    `json:"active_sessions"`
			ModelsLoaded   bool   `json:"models_loaded"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Status != "ok" || resp.ActiveSessions != 1 || !resp.ModelsLoaded {
			t.Errorf("%s: unexpected body %s", path, rec.Body.String())
		}
	}
}

func TestExportEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createSession(t, router, map[string]string{"a.pdf": "text"})

	rec := do(router, http.MethodGet, "/sessions/export", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = do(router, http.MethodGet, "/sessions/export?format=csv", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: status %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}
