package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docqa-service/internal/ai"
	"docqa-service/internal/logger"
	"docqa-service/internal/store"
	"docqa-service/internal/telemetry"
	"docqa-service/internal/vectorstore"
	"docqa-service/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const embedWorkers = 4

// DocumentLoader turns raw uploads into extracted documents.
type DocumentLoader interface {
	Load(ctx context.Context, sessionID string, files []models.UploadedFile) ([]models.Document, error)
}

// CleanupQueue retries collection releases that failed inline.
type CleanupQueue interface {
	EnqueueRelease(ctx context.Context, sessionID, collection string) error
}

type SessionDeps struct {
	Store     store.SessionStore
	Index     vectorstore.Index
	Loader    DocumentLoader
	Chunker   *Chunker
	Embedders *ai.EmbedderChain
	Reranker  ai.Reranker
	Generator ai.Generator
	Prompts   *PromptAssembler

	Cleanup CleanupQueue       // optional
	Metrics *telemetry.Metrics // optional

	RetrieveTopK      int
	RerankTopN        int
	MaxFiles          int
	GenerationTimeout time.Duration
	CleanupTimeout    time.Duration
}

// SessionService owns the session lifecycle: indexing uploads into a private
// collection, answering questions against it and releasing it on delete.
type SessionService struct {
	deps SessionDeps
}

func NewSessionService(deps SessionDeps) (*SessionService, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("session store is required")
	case deps.Index == nil:
		return nil, errors.New("vector index is required")
	case deps.Loader == nil:
		return nil, errors.New("document loader is required")
	case deps.Chunker == nil:
		return nil, errors.New("chunker is required")
	case deps.Embedders == nil:
		return nil, errors.New("embedder chain is required")
	case deps.Generator == nil:
		return nil, errors.New("generator is required")
	case deps.Prompts == nil:
		return nil, errors.New("prompt assembler is required")
	}
	if deps.Reranker == nil {
		deps.Reranker = ai.NewLexicalReranker()
	}
	if deps.RetrieveTopK <= 0 {
		deps.RetrieveTopK = 30
	}
	if deps.RerankTopN <= 0 || deps.RerankTopN > deps.RetrieveTopK {
		deps.RerankTopN = min(12, deps.RetrieveTopK)
	}
	if deps.GenerationTimeout <= 0 {
		deps.GenerationTimeout = 120 * time.Second
	}
	if deps.CleanupTimeout <= 0 {
		deps.CleanupTimeout = 30 * time.Second
	}
	return &SessionService{deps: deps}, nil
}

// CreateSession indexes the uploaded files into a fresh collection and
// registers the session. Nothing is registered unless indexing succeeds.
func (s *SessionService) CreateSession(ctx context.Context, files []models.UploadedFile) (*models.Session, error) {
	if len(files) == 0 {
		return nil, invalidInput("at least one file is required")
	}
	if s.deps.MaxFiles > 0 && len(files) > s.deps.MaxFiles {
		return nil, invalidInput("at most %d files per session, got %d", s.deps.MaxFiles, len(files))
	}
	names := make([]string, len(files))
	for i, f := range files {
		if !IsPDF(f.Filename) {
			return nil, invalidInput("%q is not a PDF", f.Filename)
		}
		if len(f.Content) == 0 {
			return nil, invalidInput("%q is empty", f.Filename)
		}
		names[i] = f.Filename
	}

	id := uuid.NewString()
	collection := models.CollectionName(id)

	tracer := otel.Tracer("session-service")
	ctx, span := tracer.Start(ctx, "session.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.Int("session.file_count", len(files)),
	)

	start := time.Now()
	log := logger.With("session_id", id)

	docs, err := s.deps.Loader.Load(ctx, id, files)
	if err != nil {
		s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), 0, "error")
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, indexingError("load", err)
	}

	chunks := s.deps.Chunker.SplitAll(docs)
	if len(chunks) == 0 {
		s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), 0, "error")
		return nil, indexingError("chunk", errors.New("no extractable text in uploaded files"))
	}

	embedder, dim, err := s.deps.Embedders.Select(ctx)
	if err != nil {
		s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), 0, "error")
		return nil, indexingError("embedder", err)
	}
	span.SetAttributes(
		attribute.String("embedding.model", embedder.Name()),
		attribute.Int("embedding.dimension", dim),
		attribute.Int("session.chunk_count", len(chunks)),
	)

	if err := s.deps.Index.EnsureCollection(ctx, collection, dim); err != nil {
		s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), 0, "error")
		return nil, indexingError("collection", err)
	}

	sess, err := s.index(ctx, id, collection, embedder, dim, chunks, names)
	if err != nil {
		s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), 0, "error")
		span.SetAttributes(attribute.Bool("session.error", true))
		if _, rerr := s.discardCollection(ctx, id, collection); rerr != nil {
			log.Error("Failed to release collection after indexing error", "collection", collection, "error", rerr)
		}
		return nil, err
	}

	s.deps.Metrics.RecordIndexing(time.Since(start).Seconds(), len(chunks), "success")
	s.deps.Metrics.SessionOpened()
	log.Info("Session created",
		"files", len(files),
		"chunks", len(chunks),
		"embedder", embedder.Name(),
		"dimension", dim,
		"duration", time.Since(start).String(),
	)
	return sess, nil
}

func (s *SessionService) index(ctx context.Context, id, collection string, embedder ai.Embedder, dim int, chunks []models.Chunk, names []string) (*models.Session, error) {
	vectors, err := embedAll(ctx, embedder, chunks, dim)
	if err != nil {
		return nil, indexingError("embed", err)
	}
	if err := s.deps.Index.Upsert(ctx, collection, chunks, vectors); err != nil {
		return nil, indexingError("upsert", err)
	}

	sess := &models.Session{
		ID:             id,
		CreatedAt:      time.Now().UTC(),
		FileCount:      len(names),
		FileNames:      names,
		Collection:     collection,
		EmbeddingModel: embedder.Name(),
		Dimension:      dim,
		ChunkCount:     len(chunks),
	}
	if err := s.deps.Store.Put(ctx, sess); err != nil {
		return nil, indexingError("register", err)
	}
	return sess, nil
}

// embedAll embeds chunks with a bounded pool; the first failure cancels the rest.
func embedAll(ctx context.Context, embedder ai.Embedder, chunks []models.Chunk, dim int) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for i := range chunks {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("chunk %d of %s: %w", chunks[i].Position, chunks[i].SourceName, err)
			}
			if len(vec) != dim {
				return fmt.Errorf("chunk %d of %s: %w: got %d, want %d",
					chunks[i].Position, chunks[i].SourceName, vectorstore.ErrDimensionMismatch, len(vec), dim)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// AskOptions carries per-request overrides.
type AskOptions struct {
	Prompt string // replaces the session and default instruction for this call only
}

// Ask answers question from the session's documents only. When retrieval
// finds nothing the fallback phrase is returned without calling the model.
func (s *SessionService) Ask(ctx context.Context, sessionID, question string, opts AskOptions) (*models.Answer, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalidInput("question must not be empty")
	}

	tracer := otel.Tracer("session-service")
	ctx, span := tracer.Start(ctx, "session.ask")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	start := time.Now()
	answer, err := s.answer(ctx, sess, question, opts)
	status := "success"
	if err != nil {
		status = "error"
		span.SetAttributes(attribute.Bool("ask.error", true))
	}
	s.deps.Metrics.RecordAsk(time.Since(start).Seconds(), status)
	return answer, err
}

func (s *SessionService) answer(ctx context.Context, sess *models.Session, question string, opts AskOptions) (*models.Answer, error) {
	log := logger.With("session_id", sess.ID)

	embedder, err := s.deps.Embedders.ByName(sess.EmbeddingModel)
	if err != nil {
		return nil, generationError("embedder", err)
	}
	qvec, err := embedder.Embed(ctx, question)
	if err != nil {
		return nil, generationError("embed question", err)
	}

	candidates, err := s.deps.Index.Query(ctx, sess.Collection, qvec, s.deps.RetrieveTopK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			// a concurrent delete may have released the collection
			if _, lerr := s.lookup(ctx, sess.ID); errors.Is(lerr, ErrNotFound) {
				return nil, lerr
			}
		}
		return nil, generationError("retrieve", err)
	}

	result := &models.Answer{SessionID: sess.ID, Question: question}
	if len(candidates) == 0 {
		result.Content = s.deps.Prompts.Fallback()
		return result, nil
	}

	top, err := s.deps.Reranker.Rerank(ctx, question, candidates, s.deps.RerankTopN)
	if err != nil {
		log.Warn("Reranker failed, using retrieval order", "reranker", s.deps.Reranker.Name(), "error", err)
		top = ai.TopN(candidates, s.deps.RerankTopN)
	}

	instruction := strings.TrimSpace(opts.Prompt)
	if instruction == "" {
		instruction = sess.Prompt()
	}
	prompt := s.deps.Prompts.Assemble(instruction, top, question)

	genCtx, cancel := context.WithTimeout(ctx, s.deps.GenerationTimeout)
	defer cancel()
	raw, err := s.deps.Generator.Generate(genCtx, prompt)
	if err != nil {
		return nil, generationError(s.deps.Generator.Name(), err)
	}
	content := s.deps.Prompts.Normalize(raw)
	if content == "" {
		return nil, generationError(s.deps.Generator.Name(), ai.ErrEmptyCompletion)
	}

	log.Debug("Answered question",
		"candidates", len(candidates),
		"context_chunks", len(top),
		"generator", s.deps.Generator.Name(),
	)
	result.Content = content
	result.Sources = top
	return result, nil
}

// SetPrompt stores a session-level instruction. A blank prompt clears it.
func (s *SessionService) SetPrompt(ctx context.Context, sessionID, prompt string) (*models.Session, error) {
	prompt = strings.TrimSpace(prompt)
	sess, err := s.deps.Store.Update(ctx, sessionID, func(sess *models.Session) error {
		if prompt == "" {
			sess.CustomPrompt = nil
			return nil
		}
		sess.CustomPrompt = &prompt
		return nil
	})
	if err != nil {
		return nil, mapStoreError(sessionID, err)
	}
	return sess, nil
}

func (s *SessionService) GetMetadata(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.lookup(ctx, sessionID)
}

func (s *SessionService) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return s.deps.Store.List(ctx)
}

func (s *SessionService) ActiveSessions(ctx context.Context) (int, error) {
	return s.deps.Store.Count(ctx)
}

// DeleteSession unregisters the session and releases its collection. The
// session is gone once this returns without ErrNotFound; a collection that
// could not be released is reported in the result and queued for retry.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (models.CleanupResult, error) {
	sess, err := s.deps.Store.Remove(ctx, sessionID)
	if err != nil {
		return models.CleanupResult{}, mapStoreError(sessionID, err)
	}
	s.deps.Metrics.SessionClosed()

	result := models.CleanupResult{Collection: sess.Collection}
	retried, err := s.discardCollection(ctx, sessionID, sess.Collection)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrCleanupFailure, err)
		result.Retried = retried
		return result, nil
	}

	result.Released = true
	logger.Info("Session deleted", "session_id", sessionID, "collection", sess.Collection)
	return result, nil
}

// discardCollection releases a collection even if the caller hung up. When the
// inline release fails it is handed to the cleanup queue; retried reports
// whether that hand-off succeeded.
func (s *SessionService) discardCollection(ctx context.Context, sessionID, collection string) (retried bool, err error) {
	relCtx := context.WithoutCancel(ctx)
	if err := s.releaseCollection(relCtx, collection); err != nil {
		log := logger.With("session_id", sessionID, "collection", collection)
		s.deps.Metrics.RecordCleanupFailure(s.deps.Index.Backend())
		log.Error("Failed to release collection", "error", err)

		if s.deps.Cleanup != nil {
			if qerr := s.deps.Cleanup.EnqueueRelease(relCtx, sessionID, collection); qerr != nil {
				log.Error("Failed to queue collection release", "error", qerr)
			} else {
				retried = true
			}
		}
		return retried, err
	}
	return false, nil
}

// ExpireSessions deletes sessions older than ttl and returns how many went.
func (s *SessionService) ExpireSessions(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	sessions, err := s.deps.Store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)
	expired := 0
	for _, sess := range sessions {
		if sess.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := s.DeleteSession(ctx, sess.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// PurgeOrphans releases session collections that no registered session owns,
// such as those left behind when an inline release failed without a queue.
func (s *SessionService) PurgeOrphans(ctx context.Context) (int, error) {
	return PurgeOrphanCollections(ctx, s.deps.Store, s.deps.Index, s.deps.CleanupTimeout)
}

// PurgeOrphanCollections is PurgeOrphans without a wired session service, for
// maintenance tooling that has no model providers.
func PurgeOrphanCollections(ctx context.Context, st store.SessionStore, index vectorstore.Index, timeout time.Duration) (int, error) {
	names, err := index.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}
	sessions, err := st.List(ctx)
	if err != nil {
		return 0, err
	}
	owned := make(map[string]struct{}, len(sessions))
	for _, sess := range sessions {
		owned[sess.Collection] = struct{}{}
	}

	purged := 0
	for _, name := range names {
		if !strings.HasPrefix(name, models.CollectionPrefix) {
			continue
		}
		if _, ok := owned[name]; ok {
			continue
		}
		delCtx, cancel := context.WithTimeout(ctx, timeout)
		err := index.DeleteCollection(delCtx, name)
		cancel()
		if err != nil {
			logger.Warn("Failed to purge orphaned collection", "collection", name, "error", err)
			continue
		}
		logger.Info("Purged orphaned collection", "collection", name)
		purged++
	}
	return purged, nil
}

// ModelsLoaded names the models the service was wired with.
func (s *SessionService) ModelsLoaded() map[string]any {
	return map[string]any{
		"embedders": s.deps.Embedders.Names(),
		"generator": s.deps.Generator.Name(),
		"reranker":  s.deps.Reranker.Name(),
		"index":     s.deps.Index.Backend(),
	}
}

func (s *SessionService) releaseCollection(ctx context.Context, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.CleanupTimeout)
	defer cancel()
	return s.deps.Index.DeleteCollection(ctx, collection)
}

func (s *SessionService) lookup(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.deps.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(sessionID, err)
	}
	return sess, nil
}

func mapStoreError(sessionID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return err
}
