package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

var (
	// ErrIndexNotFound reports a delete against an index that was never created.
	ErrIndexNotFound = errors.New(errors.ErrCodeNotFound, "opensearch index not found")
	// ErrDocumentNotFound reports a delete against an absent document.
	ErrDocumentNotFound = errors.New(errors.ErrCodeNotFound, "opensearch document not found")
)

const (
	decisionIndexBase = "decisions"

	defaultBulkBatchSize = 500

	// Searches tolerate the default refresh lag; nothing reads its own
	// writes through this index.
	defaultRefreshPolicy = "false"
)

// ─────────────────────────────────────────────────────────────────────────────
// Documents and index layout
// ─────────────────────────────────────────────────────────────────────────────

// DecisionDocument is the indexed projection of one recorded decision.  It
// mirrors the decision event payload so the worker can index without a
// database round trip.
type DecisionDocument struct {
	AnalysisID         string     `json:"analysis_id"`
	EntityName         string     `json:"entity_name"`
	Category           string     `json:"category"`
	TaskDescription    string     `json:"task_description,omitempty"`
	Decision           string     `json:"decision"`
	RiskLevel          string     `json:"risk_level"`
	RiskScore          float64    `json:"risk_score"`
	Confidence         float64    `json:"confidence"`
	Jurisdictions      []string   `json:"jurisdictions,omitempty"`
	RegulatoryDeadline *time.Time `json:"regulatory_deadline,omitempty"`
	AnalyzedAt         time.Time  `json:"analyzed_at"`
}

// IndexMapping pairs index settings with field mappings.
type IndexMapping struct {
	Settings map[string]interface{} `json:"settings,omitempty"`
	Mappings map[string]interface{} `json:"mappings,omitempty"`
}

// DecisionIndexMapping returns the mapping for the decision-history index.
// Filterable fields are keywords; task descriptions are analyzed text.
// entity_name carries a keyword subfield so it serves both free-text search
// and exact filtering.
func DecisionIndexMapping() IndexMapping {
	keyword := func() map[string]interface{} {
		return map[string]interface{}{"type": "keyword"}
	}
	return IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"properties": map[string]interface{}{
				"analysis_id": keyword(),
				"entity_name": map[string]interface{}{
					"type": "text",
					"fields": map[string]interface{}{
						"keyword": keyword(),
					},
				},
				"category":            keyword(),
				"task_description":    map[string]interface{}{"type": "text"},
				"decision":            keyword(),
				"risk_level":          keyword(),
				"risk_score":          map[string]interface{}{"type": "double"},
				"confidence":          map[string]interface{}{"type": "double"},
				"jurisdictions":       keyword(),
				"regulatory_deadline": map[string]interface{}{"type": "date"},
				"analyzed_at":         map[string]interface{}{"type": "date"},
			},
		},
	}
}

// BulkResult summarizes one bulk indexing call.
type BulkResult struct {
	Took      time.Duration
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// BulkItemError describes one rejected bulk item.
type BulkItemError struct {
	DocID  string
	Status int
	Type   string
	Reason string
}

// ─────────────────────────────────────────────────────────────────────────────
// Indexer
// ─────────────────────────────────────────────────────────────────────────────

// Indexer writes decision documents into the history index.
type Indexer struct {
	client *Client
	logger logging.Logger

	indexPrefix   string
	bulkBatchSize int
	refresh       string
}

// NewIndexer builds an indexer on the shared client.  Zero-valued settings
// fall back to the platform defaults.
func NewIndexer(client *Client, cfg config.OpenSearchConfig, log logging.Logger) *Indexer {
	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = config.DefaultOpenSearchIndexPrefix
	}
	batch := cfg.BulkBatchSize
	if batch <= 0 {
		batch = defaultBulkBatchSize
	}
	return &Indexer{
		client:        client,
		logger:        log,
		indexPrefix:   prefix,
		bulkBatchSize: batch,
		refresh:       defaultRefreshPolicy,
	}
}

// DecisionIndexName returns the fully prefixed decision index name.
func (i *Indexer) DecisionIndexName() string {
	return i.indexPrefix + "-" + decisionIndexBase
}

// EnsureIndex creates the decision index when it does not exist yet and is a
// no-op otherwise.  Both binaries call it at startup, so losing the creation
// race to a concurrent instance counts as success.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	name := i.DecisionIndexName()
	exists, err := i.indexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.Marshal(DecisionIndexMapping())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal index mapping")
	}
	req := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "create index request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		apiErr := apiError(resp, "create index "+name)
		if strings.Contains(apiErr.Error(), "resource_already_exists_exception") {
			return nil
		}
		return apiErr
	}

	i.logger.Info("Created OpenSearch index", logging.String("index", name))
	return nil
}

func (i *Indexer) indexExists(ctx context.Context, name string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{name}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchIndexError, "index exists request failed")
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, apiError(resp, "check index "+name)
	}
}

// IndexDecision writes one document keyed by its analysis ID, so a replayed
// decision event overwrites its own row instead of duplicating it.
func (i *Indexer) IndexDecision(ctx context.Context, doc DecisionDocument) error {
	if doc.AnalysisID == "" {
		return errors.New(errors.ErrCodeValidation, "analysis id is required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal decision document")
	}
	req := opensearchapi.IndexRequest{
		Index:      i.DecisionIndexName(),
		DocumentID: doc.AnalysisID,
		Body:       bytes.NewReader(body),
		Refresh:    i.refresh,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "index request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return apiError(resp, "index decision "+doc.AnalysisID)
	}
	return nil
}

// BulkIndexDecisions indexes documents in batches of the configured size and
// aggregates per-item outcomes.  A rejected item is reported in the result,
// not as an error: the caller decides whether a partial failure is fatal.
func (i *Indexer) BulkIndexDecisions(ctx context.Context, docs []DecisionDocument) (*BulkResult, error) {
	result := &BulkResult{}
	if len(docs) == 0 {
		return result, nil
	}
	for start := 0; start < len(docs); start += i.bulkBatchSize {
		end := start + i.bulkBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := i.bulkIndexBatch(ctx, docs[start:end], result); err != nil {
			return result, err
		}
	}
	if result.Failed > 0 {
		i.logger.Warn("Bulk indexing rejected documents",
			logging.Int("succeeded", result.Succeeded),
			logging.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (i *Indexer) bulkIndexBatch(ctx context.Context, docs []DecisionDocument, result *BulkResult) error {
	name := i.DecisionIndexName()

	var buf bytes.Buffer
	for _, doc := range docs {
		if doc.AnalysisID == "" {
			return errors.New(errors.ErrCodeValidation, "analysis id is required")
		}
		line, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "marshal decision document")
		}
		fmt.Fprintf(&buf, `{"index":{"_index":%q,"_id":%q}}`, name, doc.AnalysisID)
		buf.WriteByte('\n')
		buf.Write(line)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: i.refresh,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "bulk request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return apiError(resp, "bulk index")
	}

	var parsed bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode bulk response")
	}
	result.Took += time.Duration(parsed.Took) * time.Millisecond
	for _, item := range parsed.Items {
		for _, st := range item {
			if st.Status >= 200 && st.Status < 300 {
				result.Succeeded++
				continue
			}
			result.Failed++
			itemErr := BulkItemError{DocID: st.ID, Status: st.Status}
			if st.Error != nil {
				itemErr.Type = st.Error.Type
				itemErr.Reason = st.Error.Reason
			}
			result.Errors = append(result.Errors, itemErr)
		}
	}
	return nil
}

// Bulk responses key each item by its action ("index" here), so items decode
// as single-entry maps.
type bulkResponse struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemStatus `json:"items"`
}

type bulkItemStatus struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// DeleteDecision removes one document.  Deleting an absent document returns
// ErrDocumentNotFound.
func (i *Indexer) DeleteDecision(ctx context.Context, analysisID string) error {
	if analysisID == "" {
		return errors.New(errors.ErrCodeValidation, "analysis id is required")
	}
	req := opensearchapi.DeleteRequest{
		Index:      i.DecisionIndexName(),
		DocumentID: analysisID,
		Refresh:    i.refresh,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "delete request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrDocumentNotFound
	}
	if resp.IsError() {
		return apiError(resp, "delete decision "+analysisID)
	}
	return nil
}

// DeleteOlderThan removes documents analyzed before the cutoff.  The worker's
// retention sweep pairs it with the vector-store sweep so both stores age out
// together.
func (i *Indexer) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	body := fmt.Sprintf(`{"query":{"range":{"analyzed_at":{"lt":%q}}}}`,
		cutoff.UTC().Format(time.RFC3339))
	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{i.DecisionIndexName()},
		Body:  strings.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSearchIndexError, "delete by query failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return 0, apiError(resp, "delete by query")
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "decode delete by query response")
	}
	if parsed.Deleted > 0 {
		i.logger.Info("Swept aged decision documents",
			logging.String("index", i.DecisionIndexName()),
			logging.Int64("deleted", parsed.Deleted),
			logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)))
	}
	return parsed.Deleted, nil
}

// DeleteIndex drops the decision index.  Integration tests and operational
// resets use it; nothing in the serving path does.
func (i *Indexer) DeleteIndex(ctx context.Context) error {
	name := i.DecisionIndexName()
	req := opensearchapi.IndicesDeleteRequest{Index: []string{name}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "delete index request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrIndexNotFound
	}
	if resp.IsError() {
		return apiError(resp, "delete index "+name)
	}
	i.logger.Info("Deleted OpenSearch index", logging.String("index", name))
	return nil
}
