package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/orchestrator"
	"github.com/aescanero/dago-node-assistant/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned for a blank question
var ErrEmptyQuery = errors.New("query is empty")

// Classifier turns a query into a route
type Classifier interface {
	Classify(ctx context.Context, query string, recent []string) capability.Route
}

// Handler answers a routed query
type Handler interface {
	Handle(ctx context.Context, req orchestrator.Request, route capability.Route) *orchestrator.Result
}

// Answer is the response to one question
type Answer struct {
	RequestID string               `json:"request_id"`
	SessionID string               `json:"session_id"`
	Route     capability.Route     `json:"route"`
	Result    *orchestrator.Result `json:"result"`
}

// Service is the request layer around classification and orchestration
type Service struct {
	classifier   Classifier
	handler      Handler
	sessions     session.Store
	historyLimit int
	logger       *zap.Logger
}

// NewService creates the service. sessions may be nil to disable history.
func NewService(classifier Classifier, handler Handler, sessions session.Store, historyLimit int, logger *zap.Logger) *Service {
	return &Service{
		classifier:   classifier,
		handler:      handler,
		sessions:     sessions,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Ask answers query within sessionID. An empty sessionID starts a new
// session whose id is returned in the Answer.
func (s *Service) Ask(ctx context.Context, sessionID, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	requestID := uuid.NewString()

	log := s.logger.With(zap.String("request_id", requestID), zap.String("session_id", sessionID))
	log.Debug("state transition", zap.String("state", string(orchestrator.StateReceived)))

	recent := s.recent(ctx, log, sessionID)
	route := s.classifier.Classify(ctx, query, recent)

	result := s.handler.Handle(ctx, orchestrator.Request{
		ID:      requestID,
		Query:   query,
		Context: recent,
	}, route)

	s.remember(ctx, log, sessionID, query, result.FinalMessage)

	return &Answer{
		RequestID: requestID,
		SessionID: sessionID,
		Route:     route,
		Result:    result,
	}, nil
}

func (s *Service) recent(ctx context.Context, log *zap.Logger, sessionID string) []string {
	if s.sessions == nil || s.historyLimit <= 0 {
		return nil
	}
	turns, err := s.sessions.RecentTurns(ctx, sessionID, s.historyLimit)
	if err != nil {
		log.Warn("failed to load history", zap.Error(err))
		return nil
	}
	return session.Strings(turns)
}

// remember appends the exchange. History is best effort and never fails a request.
func (s *Service) remember(ctx context.Context, log *zap.Logger, sessionID, query, answer string) {
	if s.sessions == nil {
		return
	}
	now := time.Now().UTC()
	for _, t := range []session.Turn{
		{ID: uuid.NewString(), Role: session.RoleUser, Content: query, CreatedAt: now},
		{ID: uuid.NewString(), Role: session.RoleAssistant, Content: answer, CreatedAt: now},
	} {
		if err := s.sessions.Append(ctx, sessionID, t); err != nil {
			log.Warn("failed to store turn", zap.String("role", t.Role), zap.Error(err))
			return
		}
	}
}
