package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// gRPC Layer
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Assessment Layer
	AssessmentsTotal          CounterVec
	AssessmentDuration        HistogramVec
	AssessmentConfidence      HistogramVec
	AssessmentCacheHitsTotal  CounterVec
	SimilarCaseLookupDuration HistogramVec

	// Suggestion Layer
	SuggestionScansTotal   CounterVec
	SuggestionScanDuration HistogramVec
	SuggestionsRaisedTotal CounterVec

	// What-If Layer
	WhatIfRequestsTotal CounterVec
	WhatIfDuration      HistogramVec

	// Worker Layer
	WorkerTasksTotal     CounterVec
	WorkerTaskDuration   HistogramVec
	WorkerTaskQueueDepth GaugeVec
	WorkerActiveCount    GaugeVec
	WorkerTaskRetries    CounterVec

	// Event Layer
	EventsPublishedTotal   CounterVec
	EventsConsumedTotal    CounterVec
	MessageProcessDuration HistogramVec

	// Reporting Layer
	ReportsGeneratedTotal    CounterVec
	ReportGenerationDuration HistogramVec

	// Infrastructure Layer
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultEngineDurationBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultScanDurationBuckets   = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 15, 60}
	DefaultReportDurationBuckets = []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultSizeBuckets           = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultConfidenceBuckets     = []float64{.5, .6, .7, .75, .8, .85, .9, .95, 1}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// gRPC
	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC requests", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC request duration", DefaultHTTPDurationBuckets, "service", "method")

	// Assessment
	m.AssessmentsTotal = collector.RegisterCounter("assessments_total", "Risk assessments performed", "risk_level", "decision")
	m.AssessmentDuration = collector.RegisterHistogram("assessment_duration_seconds", "Risk assessment duration", DefaultEngineDurationBuckets, "risk_level")
	m.AssessmentConfidence = collector.RegisterHistogram("assessment_confidence", "Confidence of completed assessments", DefaultConfidenceBuckets, "risk_level")
	m.AssessmentCacheHitsTotal = collector.RegisterCounter("assessment_cache_hits_total", "Assessment cache hits")
	m.SimilarCaseLookupDuration = collector.RegisterHistogram("similar_case_lookup_duration_seconds", "Similar-case vector search duration", DefaultDBDurationBuckets, "collection")

	// Suggestion
	m.SuggestionScansTotal = collector.RegisterCounter("suggestion_scans_total", "Suggestion trigger scans", "source", "status")
	m.SuggestionScanDuration = collector.RegisterHistogram("suggestion_scan_duration_seconds", "Suggestion scan duration", DefaultScanDurationBuckets, "source")
	m.SuggestionsRaisedTotal = collector.RegisterCounter("suggestions_raised_total", "Suggestions raised", "trigger_type", "priority")

	// What-If
	m.WhatIfRequestsTotal = collector.RegisterCounter("whatif_requests_total", "What-if scenario evaluations", "severity")
	m.WhatIfDuration = collector.RegisterHistogram("whatif_duration_seconds", "What-if evaluation duration", DefaultEngineDurationBuckets, "mode")

	// Worker
	m.WorkerTasksTotal = collector.RegisterCounter("worker_tasks_total", "Worker tasks total", "type", "status")
	m.WorkerTaskDuration = collector.RegisterHistogram("worker_task_duration_seconds", "Worker task duration", DefaultScanDurationBuckets, "type")
	m.WorkerTaskQueueDepth = collector.RegisterGauge("worker_task_queue_depth", "Worker task queue depth", "priority")
	m.WorkerActiveCount = collector.RegisterGauge("worker_active_count", "Active workers", "type")
	m.WorkerTaskRetries = collector.RegisterCounter("worker_task_retries_total", "Worker task retries", "type", "reason")

	// Events
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Events published", "topic", "status")
	m.EventsConsumedTotal = collector.RegisterCounter("events_consumed_total", "Events consumed", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic", "message_type")

	// Reporting
	m.ReportsGeneratedTotal = collector.RegisterCounter("reports_generated_total", "Audit reports generated", "format", "status")
	m.ReportGenerationDuration = collector.RegisterHistogram("report_generation_duration_seconds", "Audit report generation duration", DefaultReportDurationBuckets, "format")

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RegisterAppMetrics is an alias for NewAppMetrics.
func RegisterAppMetrics(collector MetricsCollector) *AppMetrics {
	return NewAppMetrics(collector)
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

func RecordGRPCRequest(metrics *AppMetrics, service, method, code string, duration time.Duration) {
	metrics.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	metrics.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

func RecordAssessment(metrics *AppMetrics, riskLevel, decision string, confidence float64, duration time.Duration) {
	metrics.AssessmentsTotal.WithLabelValues(riskLevel, decision).Inc()
	metrics.AssessmentDuration.WithLabelValues(riskLevel).Observe(duration.Seconds())
	metrics.AssessmentConfidence.WithLabelValues(riskLevel).Observe(confidence)
}

func RecordSuggestion(metrics *AppMetrics, triggerType, priority string) {
	metrics.SuggestionsRaisedTotal.WithLabelValues(triggerType, priority).Inc()
}

func RecordSuggestionScan(metrics *AppMetrics, source string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.SuggestionScansTotal.WithLabelValues(source, status).Inc()
	metrics.SuggestionScanDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordWhatIf(metrics *AppMetrics, severity, mode string, duration time.Duration) {
	metrics.WhatIfRequestsTotal.WithLabelValues(severity).Inc()
	metrics.WhatIfDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func RecordEventPublished(metrics *AppMetrics, topic string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
