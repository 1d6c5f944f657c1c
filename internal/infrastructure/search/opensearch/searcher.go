package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

const (
	defaultPageSize      = 20
	maxPageSize          = 100
	defaultScrollSize    = 500
	defaultSearchTimeout = 10 * time.Second
	scrollKeepAlive      = 5 * time.Minute
)

// Sort fields accepted by DecisionQuery.SortBy.  Anything else falls back to
// recency.
const (
	SortByAnalyzedAt = "analyzed_at"
	SortByRiskScore  = "risk_score"
	SortByRelevance  = "_score"
)

// Facet aggregation names double as the keys of DecisionPage.Facets.
const (
	FacetDecisions  = "decisions"
	FacetRiskLevels = "risk_levels"
	FacetCategories = "categories"
)

// ─────────────────────────────────────────────────────────────────────────────
// Query model
// ─────────────────────────────────────────────────────────────────────────────

// DecisionQuery describes one decision-history search.  Zero-valued fields
// are skipped, so the empty query pages through the whole index newest first.
type DecisionQuery struct {
	// Text matches against task descriptions and entity names.
	Text string

	EntityName   string
	Category     string
	Decision     string
	RiskLevel    string
	Jurisdiction string

	MinRiskScore *float64
	MaxRiskScore *float64

	AnalyzedAfter  *time.Time
	AnalyzedBefore *time.Time

	// Page is 1-based; PageSize is capped at maxPageSize.
	Page     int
	PageSize int

	SortBy  string
	SortAsc bool

	WithFacets     bool
	WithHighlights bool
}

// FacetBucket is one value count within a facet.
type FacetBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DecisionHit is one matching document with its relevance score.
type DecisionHit struct {
	DecisionDocument
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// DecisionPage is one page of search results.
type DecisionPage struct {
	Total  int64                    `json:"total"`
	Took   time.Duration            `json:"took"`
	Hits   []DecisionHit            `json:"hits"`
	Facets map[string][]FacetBucket `json:"facets,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Searcher
// ─────────────────────────────────────────────────────────────────────────────

// Searcher runs decision-history queries against the index the worker feeds.
type Searcher struct {
	client *Client
	logger logging.Logger

	index         string
	pageSize      int
	scrollSize    int
	searchTimeout time.Duration
}

// NewSearcher builds a searcher on the shared client.  Zero-valued settings
// fall back to the platform defaults.
func NewSearcher(client *Client, cfg config.OpenSearchConfig, log logging.Logger) *Searcher {
	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = config.DefaultOpenSearchIndexPrefix
	}
	scroll := cfg.ScrollSize
	if scroll <= 0 {
		scroll = defaultScrollSize
	}
	return &Searcher{
		client:        client,
		logger:        log,
		index:         prefix + "-" + decisionIndexBase,
		pageSize:      defaultPageSize,
		scrollSize:    scroll,
		searchTimeout: defaultSearchTimeout,
	}
}

// Search returns one page of decisions matching the query.
func (s *Searcher) Search(ctx context.Context, q DecisionQuery) (*DecisionPage, error) {
	body, err := s.buildSearchBody(q)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()
	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(searchCtx, s.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchIndexError, "search request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, apiError(resp, "search decisions")
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode search response")
	}

	page := &DecisionPage{
		Total: parsed.Hits.Total.Value,
		Took:  time.Duration(parsed.Took) * time.Millisecond,
		Hits:  convertHits(parsed.Hits.Hits),
	}
	if len(parsed.Aggregations) > 0 {
		page.Facets = convertFacets(parsed.Aggregations)
	}

	s.logger.Debug("Decision search completed",
		logging.Int64("total", page.Total),
		logging.Int("hits", len(page.Hits)),
		logging.Duration("took", page.Took),
	)
	return page, nil
}

// Count returns the number of decisions matching the query's filters.
func (s *Searcher) Count(ctx context.Context, q DecisionQuery) (int64, error) {
	body, err := json.Marshal(map[string]interface{}{"query": buildQuery(q)})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "marshal count body")
	}
	req := opensearchapi.CountRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSearchIndexError, "count request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return 0, apiError(resp, "count decisions")
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "decode count response")
	}
	return parsed.Count, nil
}

// ScrollDecisions streams every match through fn in scroll-sized batches.
// Reporting exports use it to walk result sets far past the page cap.  The
// scroll context is cleared on every exit path.
func (s *Searcher) ScrollDecisions(ctx context.Context, q DecisionQuery, fn func([]DecisionHit) error) error {
	q.WithFacets = false
	q.WithHighlights = false
	body, err := s.buildScrollBody(q)
	if err != nil {
		return err
	}

	req := opensearchapi.SearchRequest{
		Index:  []string{s.index},
		Body:   bytes.NewReader(body),
		Scroll: scrollKeepAlive,
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "scroll open failed")
	}
	batch, scrollID, err := decodeScrollPage(resp)
	if err != nil {
		return err
	}
	defer func() { s.clearScroll(scrollID) }()

	for len(batch) > 0 {
		if err := fn(batch); err != nil {
			return err
		}
		nextReq := opensearchapi.ScrollRequest{
			ScrollID: scrollID,
			Scroll:   scrollKeepAlive,
		}
		nextResp, err := nextReq.Do(ctx, s.client.GetClient())
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchIndexError, "scroll continue failed")
		}
		batch, scrollID, err = decodeScrollPage(nextResp)
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeScrollPage drains and closes one scroll response.
func decodeScrollPage(resp *opensearchapi.Response) ([]DecisionHit, string, error) {
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, "", apiError(resp, "scroll page")
	}
	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeSerialization, "decode scroll response")
	}
	return convertHits(parsed.Hits.Hits), parsed.ScrollID, nil
}

// clearScroll runs under its own deadline: the caller's context may already
// be canceled when an export aborts.
func (s *Searcher) clearScroll(scrollID string) {
	if scrollID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := opensearchapi.ClearScrollRequest{ScrollID: []string{scrollID}}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		s.logger.Warn("Failed to clear scroll context", logging.Err(err))
		return
	}
	resp.Body.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Query DSL construction
// ─────────────────────────────────────────────────────────────────────────────

func (s *Searcher) buildSearchBody(q DecisionQuery) ([]byte, error) {
	size := q.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	body := map[string]interface{}{
		"query": buildQuery(q),
		"from":  (page - 1) * size,
		"size":  size,
		"sort":  buildSort(q),
	}
	if q.WithFacets {
		body["aggs"] = buildFacetAggs()
	}
	if q.WithHighlights && q.Text != "" {
		body["highlight"] = map[string]interface{}{
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
			"fields": map[string]interface{}{
				"task_description": map[string]interface{}{},
				"entity_name":      map[string]interface{}{},
			},
		}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal search body")
	}
	return raw, nil
}

func (s *Searcher) buildScrollBody(q DecisionQuery) ([]byte, error) {
	body := map[string]interface{}{
		"query": buildQuery(q),
		"size":  s.scrollSize,
		"sort":  buildSort(q),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal scroll body")
	}
	return raw, nil
}

// buildQuery combines the free-text clause with the exact filters.  With
// neither, the query degenerates to match_all.
func buildQuery(q DecisionQuery) map[string]interface{} {
	filters := buildFilters(q)

	var must interface{}
	if q.Text != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"task_description^2", "entity_name"},
			},
		}
	}

	if must == nil && len(filters) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	boolQuery := map[string]interface{}{}
	if must != nil {
		boolQuery["must"] = []interface{}{must}
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	return map[string]interface{}{"bool": boolQuery}
}

func buildFilters(q DecisionQuery) []interface{} {
	var filters []interface{}
	term := func(field, value string) {
		if value == "" {
			return
		}
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}
	term("entity_name.keyword", q.EntityName)
	term("category", q.Category)
	term("decision", q.Decision)
	term("risk_level", q.RiskLevel)
	term("jurisdictions", q.Jurisdiction)

	if q.MinRiskScore != nil || q.MaxRiskScore != nil {
		rng := map[string]interface{}{}
		if q.MinRiskScore != nil {
			rng["gte"] = *q.MinRiskScore
		}
		if q.MaxRiskScore != nil {
			rng["lte"] = *q.MaxRiskScore
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"risk_score": rng},
		})
	}
	if q.AnalyzedAfter != nil || q.AnalyzedBefore != nil {
		rng := map[string]interface{}{}
		if q.AnalyzedAfter != nil {
			rng["gte"] = q.AnalyzedAfter.UTC().Format(time.RFC3339)
		}
		if q.AnalyzedBefore != nil {
			rng["lt"] = q.AnalyzedBefore.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"analyzed_at": rng},
		})
	}
	return filters
}

// buildSort defaults to newest first.  Relevance ordering only means
// something when a text clause produced scores.
func buildSort(q DecisionQuery) []interface{} {
	field := q.SortBy
	switch field {
	case SortByAnalyzedAt, SortByRiskScore, SortByRelevance:
	default:
		field = SortByAnalyzedAt
	}
	order := "desc"
	if q.SortAsc {
		order = "asc"
	}
	return []interface{}{
		map[string]interface{}{field: map[string]interface{}{"order": order}},
	}
}

func buildFacetAggs() map[string]interface{} {
	terms := func(field string) map[string]interface{} {
		return map[string]interface{}{
			"terms": map[string]interface{}{"field": field, "size": 20},
		}
	}
	return map[string]interface{}{
		FacetDecisions:  terms("decision"),
		FacetRiskLevels: terms("risk_level"),
		FacetCategories: terms("category"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Response decoding
// ─────────────────────────────────────────────────────────────────────────────

type searchResponse struct {
	Took     int    `json:"took"`
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]aggResult `json:"aggregations"`
}

type searchHit struct {
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight"`
}

type aggResult struct {
	Buckets []struct {
		Key      interface{} `json:"key"`
		DocCount int64       `json:"doc_count"`
	} `json:"buckets"`
}

// convertHits decodes sources leniently: a malformed document yields a hit
// carrying only its ID so one bad row cannot sink the page.
func convertHits(raw []searchHit) []DecisionHit {
	hits := make([]DecisionHit, 0, len(raw))
	for _, h := range raw {
		hit := DecisionHit{Highlights: h.Highlight}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &hit.DecisionDocument); err != nil {
				hit.DecisionDocument = DecisionDocument{}
			}
		}
		if hit.AnalysisID == "" {
			hit.AnalysisID = h.ID
		}
		hits = append(hits, hit)
	}
	return hits
}

func convertFacets(aggs map[string]aggResult) map[string][]FacetBucket {
	facets := make(map[string][]FacetBucket, len(aggs))
	for name, agg := range aggs {
		buckets := make([]FacetBucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			buckets = append(buckets, FacetBucket{Key: fmt.Sprint(b.Key), Count: b.DocCount})
		}
		facets[name] = buckets
	}
	return facets
}
