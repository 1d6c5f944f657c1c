// Package reporting provides the application-level service for compliance
// reports. It aggregates an entity's indexed decision history into a
// structured report document, archives it in object storage, and hands the
// caller a signed download link.
package reporting

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CompliSense/internal/infrastructure/storage/minio"
	"github.com/turtacn/CompliSense/pkg/errors"
)

const (
	// eventSource identifies this service in event envelopes.
	eventSource = "reporting-service"

	// maxReportCases caps how many high-risk cases a report cites in full.
	maxReportCases = 10

	// maxReportRegulations caps the regulation activity table.
	maxReportRegulations = 25

	// keyTimeLayout names archived reports sortably by generation time.
	keyTimeLayout = "20060102T150405Z"
)

// DecisionScroller streams an entity's indexed decisions out of the search
// cluster, batch by batch.
type DecisionScroller interface {
	ScrollDecisions(ctx context.Context, q opensearch.DecisionQuery, fn func([]opensearch.DecisionHit) error) error
}

// ReportArchive stores rendered reports and signs download links.
type ReportArchive interface {
	SaveReport(ctx context.Context, req minio.SaveReportRequest) (*minio.StoredReport, error)
	FetchReport(ctx context.Context, key string) (*minio.ReportContent, error)
	ListReports(ctx context.Context, prefix string, limit int) ([]minio.StoredReport, error)
	PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// RegulationLedger reads the regulation citation footprint from the lineage
// graph.
type RegulationLedger interface {
	EntityRegulations(ctx context.Context, entityName string, limit int) ([]repositories.RegulationUsage, error)
}

// EventPublisher posts messages to the platform event stream.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// Service exposes the reporting operations consumed by the interface layer.
type Service interface {
	// Generate aggregates one entity's decision history into a report,
	// archives it, and returns the document with its download link.
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedReport, error)

	// Download fetches an archived report payload by key.
	Download(ctx context.Context, key string) (*ReportPayload, error)

	// List returns the archived reports of one entity, up to limit.
	List(ctx context.Context, entityName string, limit int) ([]ArchivedReport, error)
}

// GenerateRequest scopes one report run. A nil bound leaves that side of
// the window open.
type GenerateRequest struct {
	EntityName string     `json:"entity_name"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// Validate checks the request shape.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.EntityName) == "" {
		return errors.New(errors.ErrCodeValidation, "entity name is required")
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return errors.New(errors.ErrCodeValidation, "report window start must not be after its end")
	}
	return nil
}

// ReportCase is one noteworthy decision cited in the report body.
type ReportCase struct {
	AnalysisID      string    `json:"analysis_id"`
	TaskDescription string    `json:"task_description,omitempty"`
	Decision        string    `json:"decision"`
	RiskLevel       string    `json:"risk_level"`
	RiskScore       float64   `json:"risk_score"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// RegulationActivity is one regulation's citation footprint.
type RegulationActivity struct {
	Regulation string    `json:"regulation"`
	Citations  int64     `json:"citations"`
	LastCited  time.Time `json:"last_cited"`
}

// EntityReport is the report document as archived.
type EntityReport struct {
	EntityName       string               `json:"entity_name"`
	GeneratedAt      time.Time            `json:"generated_at"`
	PeriodStart      *time.Time           `json:"period_start,omitempty"`
	PeriodEnd        *time.Time           `json:"period_end,omitempty"`
	TotalDecisions   int                  `json:"total_decisions"`
	AverageRiskScore float64              `json:"average_risk_score"`
	MaxRiskScore     float64              `json:"max_risk_score"`
	ByDecision       map[string]int       `json:"by_decision"`
	ByRiskLevel      map[string]int       `json:"by_risk_level"`
	ByCategory       map[string]int       `json:"by_category"`
	HighRiskCases    []ReportCase         `json:"high_risk_cases,omitempty"`
	Regulations      []RegulationActivity `json:"regulations,omitempty"`
}

// GeneratedReport pairs the report document with its archive location.
type GeneratedReport struct {
	Report      *EntityReport `json:"report"`
	Key         string        `json:"key"`
	Size        int64         `json:"size"`
	DownloadURL string        `json:"download_url,omitempty"`
}

// ReportPayload is a fetched report ready to stream back to the caller.
type ReportPayload struct {
	Data         []byte    `json:"-"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ArchivedReport describes one archived report document.
type ArchivedReport struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// Option configures optional collaborators on the service.
type Option func(*service)

// WithRegulationLedger attaches the lineage graph that enriches reports
// with regulation citation activity.
func WithRegulationLedger(ledger RegulationLedger) Option {
	return func(s *service) {
		s.ledger = ledger
	}
}

// WithPublisher attaches the producer that writes an audit trail entry for
// every generated report.
func WithPublisher(pub EventPublisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

type service struct {
	search    DecisionScroller
	archive   ReportArchive
	ledger    RegulationLedger
	publisher EventPublisher
	logger    logging.Logger
}

// NewService creates a reporting service around the given decision search
// and report archive. Lineage enrichment and audit publishing are optional.
func NewService(search DecisionScroller, archive ReportArchive, logger logging.Logger, opts ...Option) Service {
	s := &service{
		search:  search,
		archive: archive,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Generate
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Generate(ctx context.Context, req GenerateRequest) (*GeneratedReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}
	s.attachRegulations(ctx, report)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReportExportError, "failed to render report")
	}

	key := reportKey(req.EntityName, report.GeneratedAt)
	stored, err := s.archive.SaveReport(ctx, minio.SaveReportRequest{
		Key:         key,
		Data:        data,
		ContentType: "application/json",
		Metadata:    map[string]string{"Entity": req.EntityName},
		GeneratedAt: report.GeneratedAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReportExportError, "failed to archive report")
	}

	out := &GeneratedReport{
		Report: report,
		Key:    stored.Key,
		Size:   stored.Size,
	}
	// A failed signature leaves the report archived and fetchable by key.
	url, err := s.archive.PresignedDownloadURL(ctx, stored.Key, 0)
	if err != nil {
		s.logger.Warn("Failed to sign report download link",
			logging.String("key", stored.Key),
			logging.Err(err))
	} else {
		out.DownloadURL = url
	}

	s.auditExport(ctx, req.EntityName, stored.Key, report.TotalDecisions)
	s.logger.Info("Compliance report generated",
		logging.String("entity", req.EntityName),
		logging.String("key", stored.Key),
		logging.Int("decisions", report.TotalDecisions))
	return out, nil
}

func (s *service) buildReport(ctx context.Context, req GenerateRequest) (*EntityReport, error) {
	report := &EntityReport{
		EntityName:  req.EntityName,
		GeneratedAt: time.Now().UTC(),
		PeriodStart: req.From,
		PeriodEnd:   req.To,
		ByDecision:  map[string]int{},
		ByRiskLevel: map[string]int{},
		ByCategory:  map[string]int{},
	}

	query := opensearch.DecisionQuery{
		EntityName:     req.EntityName,
		AnalyzedAfter:  req.From,
		AnalyzedBefore: req.To,
	}

	var scoreSum float64
	var cases []ReportCase
	err := s.search.ScrollDecisions(ctx, query, func(hits []opensearch.DecisionHit) error {
		for _, hit := range hits {
			report.TotalDecisions++
			scoreSum += hit.RiskScore
			if hit.RiskScore > report.MaxRiskScore {
				report.MaxRiskScore = hit.RiskScore
			}
			report.ByDecision[hit.Decision]++
			report.ByRiskLevel[hit.RiskLevel]++
			report.ByCategory[hit.Category]++
			if hit.RiskLevel == "HIGH" {
				cases = append(cases, ReportCase{
					AnalysisID:      hit.AnalysisID,
					TaskDescription: hit.TaskDescription,
					Decision:        hit.Decision,
					RiskLevel:       hit.RiskLevel,
					RiskScore:       hit.RiskScore,
					AnalyzedAt:      hit.AnalyzedAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReportExportError, "failed to read decision history")
	}

	if report.TotalDecisions > 0 {
		report.AverageRiskScore = scoreSum / float64(report.TotalDecisions)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].RiskScore > cases[j].RiskScore })
	if len(cases) > maxReportCases {
		cases = cases[:maxReportCases]
	}
	report.HighRiskCases = cases
	return report, nil
}

func (s *service) attachRegulations(ctx context.Context, report *EntityReport) {
	if s.ledger == nil {
		return
	}
	usage, err := s.ledger.EntityRegulations(ctx, report.EntityName, maxReportRegulations)
	if err != nil {
		s.logger.Warn("Regulation activity lookup failed",
			logging.String("entity", report.EntityName),
			logging.Err(err))
		return
	}
	if len(usage) == 0 {
		return
	}
	activity := make([]RegulationActivity, len(usage))
	for i, u := range usage {
		activity[i] = RegulationActivity{
			Regulation: u.Regulation,
			Citations:  u.Citations,
			LastCited:  u.LastCited,
		}
	}
	report.Regulations = activity
}

func (s *service) auditExport(ctx context.Context, entityName, key string, decisions int) {
	if s.publisher == nil {
		return
	}
	payload := kafka.AuditLogPayload{
		Actor:      eventSource,
		Action:     "report.generate",
		Resource:   key,
		Outcome:    "success",
		Detail:     entityName,
		OccurredAt: time.Now().UTC(),
	}
	env, err := kafka.NewEventEnvelope(kafka.TopicAuditLog, eventSource, payload)
	if err != nil {
		s.logger.Error("Failed to build audit event", logging.Err(err))
		return
	}
	msg, err := env.ToMessage(kafka.TopicAuditLog)
	if err != nil {
		s.logger.Error("Failed to encode audit event", logging.Err(err))
		return
	}
	msg.Key = []byte(entityName)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("Failed to publish audit event",
			logging.String("key", key),
			logging.Int("decisions", decisions),
			logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Download / List
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Download(ctx context.Context, key string) (*ReportPayload, error) {
	if key == "" {
		return nil, errors.New(errors.ErrCodeValidation, "report key is required")
	}
	content, err := s.archive.FetchReport(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ReportPayload{
		Data:         content.Data,
		ContentType:  content.ContentType,
		Size:         content.Size,
		LastModified: content.LastModified,
	}, nil
}

func (s *service) List(ctx context.Context, entityName string, limit int) ([]ArchivedReport, error) {
	if strings.TrimSpace(entityName) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "entity name is required")
	}

	stored, err := s.archive.ListReports(ctx, reportPrefix(entityName), limit)
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedReport, len(stored))
	for i, rep := range stored {
		out[i] = ArchivedReport{
			Key:          rep.Key,
			Size:         rep.Size,
			ContentType:  rep.ContentType,
			LastModified: rep.LastModified,
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Keys
// ─────────────────────────────────────────────────────────────────────────────

func reportPrefix(entityName string) string {
	return "reports/" + entitySlug(entityName) + "/"
}

func reportKey(entityName string, generatedAt time.Time) string {
	return reportPrefix(entityName) + generatedAt.UTC().Format(keyTimeLayout) + ".json"
}

// entitySlug folds an entity name into a stable key segment: lowercase,
// runs of non-alphanumerics collapsed to single dashes.
func entitySlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
