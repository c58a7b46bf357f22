package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/assistant"
	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Asker answers one question within a session
type Asker interface {
	Ask(ctx context.Context, sessionID, query string) (*assistant.Answer, error)
}

// Worker consumes questions from a Redis stream and publishes answers
type Worker struct {
	id            string
	config        *config.Config
	redisClient   redis.UniversalClient
	asker         Asker
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker
func NewWorker(cfg *config.Config, redisClient redis.UniversalClient, asker Asker, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		asker:         asker,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting assistant worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	// Create consumer group if it doesn't exist
	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.wg.Add(1)
	go w.processWork()

	w.logger.Info("assistant worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight question, bounded by ctx
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("stopping assistant worker", zap.String("worker_id", w.id))
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("assistant worker stopped", zap.String("worker_id", w.id))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker did not stop in time: %w", ctx.Err())
	}
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork reads questions until the worker is stopped
func (w *Worker) processWork() {
	defer w.wg.Done()
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
		}

		streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
			Group:    w.consumerGroup,
			Consumer: w.id,
			Streams:  []string{w.streamKey, ">"},
			Count:    1,
			Block:    w.config.BlockTime,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read from stream", zap.Error(err))
			select {
			case <-w.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				w.handleMessage(message)
			}
		}
	}
}

// handleMessage answers one question. The message is acknowledged whatever happens.
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	defer w.acknowledgeMessage(messageID)

	question, err := ParseQuestion(message.Values)
	if err != nil {
		w.logger.Error("failed to parse question",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.publishError(messageID, nil, err)
		return
	}

	w.logger.Info("processing question",
		zap.String("message_id", messageID),
		zap.String("request_id", question.RequestID),
		zap.String("session_id", question.SessionID),
	)

	// The answer is still published when the worker is stopping mid-question
	ctx := context.WithoutCancel(w.ctx)
	answer, err := w.asker.Ask(ctx, question.SessionID, question.Query)
	if err != nil {
		w.logger.Error("failed to answer question",
			zap.String("message_id", messageID),
			zap.String("request_id", question.RequestID),
			zap.Error(err),
		)
		w.publishError(messageID, question, err)
		return
	}

	if err := w.publishAnswer(ctx, NewAnswerEvent(question, answer)); err != nil {
		w.logger.Error("failed to publish answer",
			zap.String("request_id", question.RequestID),
			zap.Error(err),
		)
		w.publishError(messageID, question, err)
	}
}

// Question is one request read from the question stream
type Question struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// ParseQuestion reads a question from a stream message. The payload is
// either a JSON document in the "data" field or flat request_id, session_id
// and query fields.
func ParseQuestion(values map[string]interface{}) (*Question, error) {
	var q Question
	if raw, ok := values["data"]; ok {
		dataStr, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("invalid 'data' field")
		}
		if err := json.Unmarshal([]byte(dataStr), &q); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question: %w", err)
		}
	} else {
		q.RequestID, _ = values["request_id"].(string)
		q.SessionID, _ = values["session_id"].(string)
		q.Query, _ = values["query"].(string)
	}

	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, fmt.Errorf("missing or empty 'query' field")
	}
	return &q, nil
}

// ProviderStatus summarizes one provider call in a published answer
type ProviderStatus struct {
	Capability capability.Tag       `json:"capability"`
	Outcome    capability.Outcome   `json:"outcome"`
	ErrorKind  capability.ErrorKind `json:"error_kind,omitempty"`
	Category   string               `json:"category,omitempty"`
	ElapsedMS  int64                `json:"elapsed_ms"`
}

// AnswerEvent is published to the answer stream
type AnswerEvent struct {
	RequestID       string                 `json:"request_id"`
	ClientRequestID string                 `json:"client_request_id,omitempty"`
	SessionID       string                 `json:"session_id"`
	Message         string                 `json:"message"`
	Route           capability.Route       `json:"route"`
	Degraded        bool                   `json:"degraded"`
	Sources         []capability.SourceRef `json:"sources"`
	Providers       []ProviderStatus       `json:"providers"`
	Timestamp       time.Time              `json:"timestamp"`
}

// NewAnswerEvent builds the published form of an answer
func NewAnswerEvent(q *Question, a *assistant.Answer) AnswerEvent {
	ev := AnswerEvent{
		RequestID: a.RequestID,
		SessionID: a.SessionID,
		Message:   a.Result.FinalMessage,
		Route:     a.Route,
		Degraded:  a.Result.Degraded,
		Sources:   a.Result.Sources,
		Providers: make([]ProviderStatus, 0, len(a.Result.PerProviderResults)),
		Timestamp: time.Now().UTC(),
	}
	for _, r := range a.Result.PerProviderResults {
		st := ProviderStatus{
			Capability: r.Tag,
			Outcome:    r.Outcome,
			ElapsedMS:  r.Elapsed.Milliseconds(),
		}
		if r.Error != nil {
			st.ErrorKind = r.Error.Kind
			st.Category = r.Error.Category
		}
		ev.Providers = append(ev.Providers, st)
	}
	if q.RequestID != a.RequestID {
		ev.ClientRequestID = q.RequestID
	}
	return ev
}

// publishAnswer publishes an answer to the result stream
func (w *Worker) publishAnswer(ctx context.Context, ev AnswerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}

	_, err = w.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: w.resultStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Info("published answer",
		zap.String("request_id", ev.RequestID),
		zap.Bool("degraded", ev.Degraded),
		zap.Int("sources", len(ev.Sources)),
	)
	return nil
}

// publishError publishes an error event to <result stream>.errors
func (w *Worker) publishError(messageID string, q *Question, err error) {
	errorEvent := map[string]interface{}{
		"message_id": messageID,
		"error":      err.Error(),
		"timestamp":  time.Now().UTC(),
	}
	if q != nil {
		errorEvent["request_id"] = q.RequestID
		errorEvent["session_id"] = q.SessionID
	}

	data, marshalErr := json.Marshal(errorEvent)
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	_, publishErr := w.redisClient.XAdd(context.WithoutCancel(w.ctx), &redis.XAddArgs{
		Stream: ErrorStream(w.resultStream),
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// ErrorStream is the stream that receives failures for resultStream
func ErrorStream(resultStream string) string {
	return resultStream + ".errors"
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	err := w.redisClient.XAck(context.WithoutCancel(w.ctx), w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
