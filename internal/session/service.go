package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/ingestion"
	"github.com/Benny93/docgraph-go/internal/loader"
	"github.com/Benny93/docgraph-go/internal/logger"
	"github.com/Benny93/docgraph-go/internal/visualization"
)

// entry is a registered session. mu serializes batches on the session.
type entry struct {
	mu      sync.Mutex
	session *Session
	builder *ingestion.Builder
}

// Service owns the session registry. Every session gets its own graph
// builder, so concept counts never leak between sessions.
type Service struct {
	processor *document.Processor
	engine    *visualization.Engine
	newID     func() string
	now       func() time.Time
	progress  ingestion.ProgressCallback

	mu       sync.RWMutex
	sessions map[string]*entry
}

// Option configures a Service.
type Option func(*Service)

// WithProcessor sets the document processor.
func WithProcessor(p *document.Processor) Option {
	return func(s *Service) { s.processor = p }
}

// WithEngine sets the visualization engine.
func WithEngine(e *visualization.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithIDGenerator replaces the UUID session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// WithProgress receives graph building progress of every batch.
func WithProgress(fn ingestion.ProgressCallback) Option {
	return func(s *Service) { s.progress = fn }
}

// NewService creates a service with no sessions.
func NewService(opts ...Option) *Service {
	s := &Service{
		processor: document.NewProcessor(),
		engine:    visualization.NewEngine(),
		newID:     uuid.NewString,
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAnalysisSession registers a new empty session. A nil settings value uses
// DefaultSettings.
func (s *Service) CreateAnalysisSession(name string, settings *Settings) *Session {
	cfg := DefaultSettings()
	if settings != nil {
		cfg = *settings
	}
	now := s.now()
	sess := &Session{
		ID:             s.newID(),
		Name:           name,
		Documents:      []*document.ProcessedDocument{},
		KnowledgeGraph: &graph.Snapshot{Nodes: []*graph.GraphNode{}, Edges: []*graph.GraphRelationship{}},
		Visualizations: []*visualization.Visualization{},
		CreatedAt:      now,
		UpdatedAt:      now,
		Settings:       cfg,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{session: sess, builder: ingestion.NewBuilder()}
	s.mu.Unlock()

	logger.Info("Session created", "id", sess.ID, "name", name)
	return sess.clone()
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// GetSession returns a view of the session, or ErrSessionNotFound.
func (s *Service) GetSession(id string) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone(), nil
}

// DeleteSession removes the session. It reports whether it existed.
func (s *Service) DeleteSession(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		logger.Info("Session deleted", "id", id)
	}
	return ok
}

// ListSessions returns every session ordered by creation time.
func (s *Service) ListSessions() []*Session {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.session.clone())
		e.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// item is one file or URL of a batch.
type item struct {
	name string
	run  func(ctx context.Context) (*document.ProcessedDocument, error)
}

// ProcessDocuments processes files and URLs concurrently and folds the
// successful ones into the session. A failing item never aborts the batch;
// its error is recorded in the result. After the batch, when the session
// auto-visualizes, its visualizations are regenerated for all documents.
func (s *Service) ProcessDocuments(ctx context.Context, sessionID string, files []loader.File, urls []string) (*AnalysisResult, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.session.Settings
	items := make([]item, 0, len(files)+len(urls))
	for _, f := range files {
		items = append(items, item{
			name: f.Name,
			run: func(ctx context.Context) (*document.ProcessedDocument, error) {
				return s.processor.ProcessFile(ctx, f)
			},
		})
	}
	for _, u := range urls {
		items = append(items, item{
			name: u,
			run: func(ctx context.Context) (*document.ProcessedDocument, error) {
				if settings.Processing.FetchTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, settings.Processing.FetchTimeout)
					defer cancel()
				}
				return s.processor.ProcessURL(ctx, u)
			},
		})
	}

	docs := make([]*document.ProcessedDocument, len(items))
	errs := make([]error, len(items))

	var eg errgroup.Group
	if settings.Processing.MaxConcurrency > 0 {
		eg.SetLimit(settings.Processing.MaxConcurrency)
	}
	for i, it := range items {
		eg.Go(func() error {
			docs[i], errs[i] = it.run(ctx)
			return nil
		})
	}
	_ = eg.Wait()

	result := &AnalysisResult{
		SessionID: sessionID,
		Success:   true,
		Documents: []*document.ProcessedDocument{},
		Errors:    []string{},
	}
	for i, it := range items {
		if errs[i] != nil {
			msg := fmt.Sprintf("Failed to process %s: %v", it.name, errs[i])
			logger.Warn("Document failed", "session", sessionID, "item", it.name, "err", errs[i])
			result.Errors = append(result.Errors, msg)
			continue
		}
		result.Documents = append(result.Documents, docs[i])
	}
	result.DocumentsProcessed = len(result.Documents)

	e.builder.ProcessDocuments(result.Documents, s.progress)

	sess := e.session
	sess.Documents = append(sess.Documents, result.Documents...)
	sess.KnowledgeGraph = e.builder.Export()

	if settings.AutoVisualize {
		var g *graph.KnowledgeGraph
		if settings.IncludeKnowledgeGraph {
			g = e.builder.Graph()
		}
		vs := s.engine.GenerateForDocuments(sess.Documents, g)
		sess.Visualizations = visualization.Filter(vs, settings.VisualizationPreferences)
	}
	sess.UpdatedAt = s.now()

	result.Visualizations = len(sess.Visualizations)
	result.Nodes = sess.KnowledgeGraph.NodeCount()
	result.Edges = sess.KnowledgeGraph.EdgeCount()

	logger.Info("Batch processed",
		"session", sessionID,
		"documents", result.DocumentsProcessed,
		"errors", len(result.Errors),
		"nodes", result.Nodes,
		"edges", result.Edges,
	)
	return result, nil
}

// UpdateSettings replaces the settings of a session. They apply from the
// next batch on.
func (s *Service) UpdateSettings(sessionID string, settings Settings) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Settings = settings
	e.session.UpdatedAt = s.now()
	return nil
}

// SearchConcepts runs a concept search over the session graph.
func (s *Service) SearchConcepts(sessionID, query string, limit int) ([]ingestion.SearchResult, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.builder.SearchConcepts(query, limit), nil
}

// ConceptNetwork returns the neighborhood of a node in the session graph.
func (s *Service) ConceptNetwork(sessionID, nodeID string, depth int) (*graph.Snapshot, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.builder.GetConceptNetwork(nodeID, depth), nil
}

// RelatedDocument pairs a session document with its similarity score.
type RelatedDocument struct {
	Document *document.ProcessedDocument `json:"document"`
	Score    float64                     `json:"score"`
}

// RelatedDocuments returns the session documents most similar to the given
// one, resolved to full documents.
func (s *Service) RelatedDocuments(sessionID, documentID string, limit int) ([]RelatedDocument, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []RelatedDocument{}
	for _, r := range e.builder.GetRelatedDocuments(documentID, limit) {
		if doc := e.session.Document(r.DocumentID); doc != nil {
			out = append(out, RelatedDocument{Document: doc, Score: r.Score})
		}
	}
	return out, nil
}
