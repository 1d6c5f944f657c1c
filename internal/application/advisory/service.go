// Package advisory provides the application-level service for proactive
// suggestion scans. It feeds recorded decision history through the trigger
// detectors, persists whatever they raise, and announces each finding on
// the event stream.
package advisory

import (
	"context"
	"time"

	"github.com/turtacn/CompliSense/internal/domain/suggestion"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

const (
	// eventSource identifies this service in event envelopes.
	eventSource = "advisory-service"

	// defaultHistoryLimit caps how many decision records one scan reads.
	defaultHistoryLimit = 100

	// defaultRecentLimit caps a Recent listing when the caller passes none.
	defaultRecentLimit = 20
)

// DecisionHistory reads an entity's recorded decisions, newest first.
type DecisionHistory interface {
	ListRecordsByEntity(ctx context.Context, entityName string, limit int) ([]compliance.DecisionRecord, error)
}

// SuggestionStore persists raised suggestions and serves the advisory
// history.
type SuggestionStore interface {
	SaveBatch(ctx context.Context, entityName string, raisedAt time.Time, suggestions []suggestion.Suggestion) ([]common.ID, error)
	ListByEntity(ctx context.Context, entityName string, limit int) ([]repositories.StoredSuggestion, error)
}

// EventPublisher posts messages to the platform event stream.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// Service exposes the advisory operations consumed by the interface layer
// and the background scan worker.
type Service interface {
	// Scan runs the trigger detectors over one entity's decision history,
	// persisting and announcing whatever they raise.
	Scan(ctx context.Context, req compliance.SuggestionScanRequest) (*ScanResult, error)

	// Recent returns the latest persisted suggestions for one entity,
	// newest first.
	Recent(ctx context.Context, entityName string, limit int) ([]RaisedSuggestion, error)
}

// ScanResult summarizes one trigger scan.
type ScanResult struct {
	EntityName  string                     `json:"entity_name"`
	ScannedAt   time.Time                  `json:"scanned_at"`
	RecordsSeen int                        `json:"records_seen"`
	Suggestions []compliance.SuggestionDTO `json:"suggestions"`
}

// RaisedSuggestion is one persisted suggestion with its storage identity.
type RaisedSuggestion struct {
	ID         common.ID                `json:"id"`
	EntityName string                   `json:"entity_name"`
	RaisedAt   time.Time                `json:"raised_at"`
	Suggestion compliance.SuggestionDTO `json:"suggestion"`
}

// Option configures optional collaborators on the service.
type Option func(*service)

// WithPublisher attaches the producer that announces raised suggestions on
// the event stream.
func WithPublisher(pub EventPublisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

// WithHistoryLimit overrides how many decision records one scan reads.
func WithHistoryLimit(limit int) Option {
	return func(s *service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

type service struct {
	triggers     *suggestion.Service
	history      DecisionHistory
	store        SuggestionStore
	publisher    EventPublisher
	historyLimit int
	logger       logging.Logger
}

// NewService creates an advisory service around the given trigger detectors,
// decision history, and suggestion store. Event publishing is optional.
func NewService(triggers *suggestion.Service, history DecisionHistory, store SuggestionStore, logger logging.Logger, opts ...Option) Service {
	s := &service{
		triggers:     triggers,
		history:      history,
		store:        store,
		historyLimit: defaultHistoryLimit,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Scan(ctx context.Context, req compliance.SuggestionScanRequest) (*ScanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "scan request rejected")
	}

	records, err := s.history.ListRecordsByEntity(ctx, req.EntityName, s.historyLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHistoryUnavailable, "decision history unavailable")
	}

	scannedAt := time.Now().UTC()
	raised := s.triggers.CheckTriggers(req.EntityName, records, suggestion.CheckOptions{
		CategoryFilter: req.Category,
		AsOf:           scannedAt,
	})

	result := &ScanResult{
		EntityName:  req.EntityName,
		ScannedAt:   scannedAt,
		RecordsSeen: len(records),
		Suggestions: []compliance.SuggestionDTO{},
	}
	if len(raised) == 0 {
		s.logger.Debug("Suggestion scan found nothing",
			logging.String("entity", req.EntityName),
			logging.Int("records_seen", len(records)))
		return result, nil
	}

	ids, err := s.store.SaveBatch(ctx, req.EntityName, scannedAt, raised)
	if err != nil {
		return nil, err
	}
	s.announceSuggestions(ctx, req.EntityName, scannedAt, ids, raised)

	result.Suggestions = suggestion.ToDTOs(raised)
	s.logger.Info("Suggestion scan completed",
		logging.String("entity", req.EntityName),
		logging.Int("records_seen", len(records)),
		logging.Int("suggestions_raised", len(raised)))
	return result, nil
}

func (s *service) Recent(ctx context.Context, entityName string, limit int) ([]RaisedSuggestion, error) {
	if entityName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "entity name is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	stored, err := s.store.ListByEntity(ctx, entityName, limit)
	if err != nil {
		return nil, err
	}

	out := make([]RaisedSuggestion, len(stored))
	for i, rec := range stored {
		out[i] = RaisedSuggestion{
			ID:         rec.ID,
			EntityName: rec.EntityName,
			RaisedAt:   rec.RaisedAt,
			Suggestion: rec.Suggestion.ToDTO(),
		}
	}
	return out, nil
}

// announceSuggestions publishes one suggestion.raised event per finding.
// Publishing is best-effort: the scan result stands even when the stream
// is unreachable.
func (s *service) announceSuggestions(ctx context.Context, entityName string, raisedAt time.Time, ids []common.ID, raised []suggestion.Suggestion) {
	if s.publisher == nil {
		return
	}

	for i, sg := range raised {
		var id common.ID
		if i < len(ids) {
			id = ids[i]
		}
		payload := kafka.SuggestionRaisedPayload{
			SuggestionID: string(id),
			EntityName:   entityName,
			TriggerName:  sg.TriggerName,
			TriggerType:  string(sg.Type),
			Priority:     string(sg.Priority),
			Title:        sg.Title,
			RaisedAt:     raisedAt,
		}
		env, err := kafka.NewEventEnvelope(kafka.TopicSuggestionRaised, eventSource, payload)
		if err != nil {
			s.logger.Error("Failed to build suggestion event",
				logging.String("entity", entityName),
				logging.String("trigger", sg.TriggerName),
				logging.Err(err))
			continue
		}
		msg, err := env.ToMessage(kafka.TopicSuggestionRaised)
		if err != nil {
			s.logger.Error("Failed to encode suggestion event",
				logging.String("entity", entityName),
				logging.String("trigger", sg.TriggerName),
				logging.Err(err))
			continue
		}
		msg.Key = []byte(entityName)

		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("Failed to publish suggestion event",
				logging.String("entity", entityName),
				logging.String("trigger", sg.TriggerName),
				logging.Err(err))
		}
	}
}
