package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP requests,
// import lifecycle events, media fetch outcomes, and authorization denials. It
// coordinates concurrent writers via a RWMutex while exposing a thread-safe
// gauge for active import tracking.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	importEvents    map[ImportJobLabel]uint64
	activeImports   atomic.Int64
	fetchAttempts   map[string]uint64
	fetchFailures   map[string]uint64
	fieldUpdates    map[string]uint64
	authDenials     atomic.Uint64
}

type ImportJobLabel struct {
	Kind   string
	Status string
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		importEvents:    make(map[ImportJobLabel]uint64),
		fetchAttempts:   make(map[string]uint64),
		fetchFailures:   make(map[string]uint64),
		fieldUpdates:    make(map[string]uint64),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ImportJobStarted records the beginning of an import job of the provided kind
// (e.g., "bulk" or "single") and increments the active job gauge.
func (r *Recorder) ImportJobStarted(kind string) {
	r.recordImportEvent(kind, "start")
	r.activeImports.Add(1)
}

// ImportJobCompleted records the completion of an import job and decrements
// the active job gauge.
func (r *Recorder) ImportJobCompleted(kind string) {
	r.recordImportEvent(kind, "complete")
	r.decrementGauge(&r.activeImports)
}

// ImportJobFailed records a failed import job and decrements the active job
// gauge (without allowing it to go negative if the job never started).
func (r *Recorder) ImportJobFailed(kind string) {
	r.recordImportEvent(kind, "fail")
	r.decrementGauge(&r.activeImports)
}

func (r *Recorder) recordImportEvent(kind, status string) {
	label := ImportJobLabel{
		Kind:   normalizeName(kind),
		Status: normalizeName(status),
	}
	r.mu.Lock()
	r.importEvents[label]++
	r.mu.Unlock()
}

// ObserveFetchAttempt records a remote media fetch attempt keyed by the source
// host.
func (r *Recorder) ObserveFetchAttempt(host string) {
	h := normalizeName(host)
	r.mu.Lock()
	r.fetchAttempts[h]++
	r.mu.Unlock()
}

// ObserveFetchFailure records a failed remote media fetch keyed by the source
// host. The caller should also record the attempt separately.
func (r *Recorder) ObserveFetchFailure(host string) {
	h := normalizeName(host)
	r.mu.Lock()
	r.fetchFailures[h]++
	r.mu.Unlock()
}

// ObserveFieldUpdate records an applied field update keyed by the update kind
// (e.g., "plain", "date", "safebool", "refs", "image").
func (r *Recorder) ObserveFieldUpdate(kind string) {
	k := normalizeName(kind)
	r.mu.Lock()
	r.fieldUpdates[k]++
	r.mu.Unlock()
}

// ObserveAuthDenial counts requests rejected by shared-secret verification.
func (r *Recorder) ObserveAuthDenial() {
	r.authDenials.Add(1)
}

// AuthDenials returns how many requests shared-secret verification rejected.
func (r *Recorder) AuthDenials() uint64 {
	return r.authDenials.Load()
}

// ActiveImports exposes the current gauge of concurrently running import jobs.
func (r *Recorder) ActiveImports() int64 {
	return r.activeImports.Load()
}

// ImportJobCounts returns copies of import job event counters and the current
// active job gauge value.
func (r *Recorder) ImportJobCounts() (events map[ImportJobLabel]uint64, active int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events = make(map[ImportJobLabel]uint64, len(r.importEvents))
	for k, v := range r.importEvents {
		events[k] = v
	}
	return events, r.activeImports.Load()
}

// FetchCounts returns copies of fetch attempt and failure counters for testing
// and reporting purposes.
func (r *Recorder) FetchCounts() (attempts map[string]uint64, failures map[string]uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempts = make(map[string]uint64, len(r.fetchAttempts))
	for k, v := range r.fetchAttempts {
		attempts[k] = v
	}
	failures = make(map[string]uint64, len(r.fetchFailures))
	for k, v := range r.fetchFailures {
		failures[k] = v
	}
	return attempts, failures
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.importEvents = make(map[ImportJobLabel]uint64)
	r.fetchAttempts = make(map[string]uint64)
	r.fetchFailures = make(map[string]uint64)
	r.fieldUpdates = make(map[string]uint64)
	r.activeImports.Store(0)
	r.authDenials.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	importLabels := r.sortedImportJobLabels()
	fetchHosts := r.sortedFetchHosts()
	updateKinds := r.sortedFieldUpdateKinds()

	fmt.Fprintln(w, "# HELP sitebridge_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE sitebridge_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "sitebridge_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE sitebridge_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "sitebridge_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP sitebridge_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE sitebridge_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "sitebridge_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_import_jobs_total Import job events by kind and status")
	fmt.Fprintln(w, "# TYPE sitebridge_import_jobs_total counter")
	for _, label := range importLabels {
		count := r.importEvents[label]
		fmt.Fprintf(w, "sitebridge_import_jobs_total{kind=\"%s\",status=\"%s\"} %d\n", label.Kind, label.Status, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_active_imports Current number of running import jobs")
	fmt.Fprintln(w, "# TYPE sitebridge_active_imports gauge")
	fmt.Fprintf(w, "sitebridge_active_imports %d\n", r.activeImports.Load())

	fmt.Fprintln(w, "# HELP sitebridge_media_fetch_attempts_total Remote media fetch attempts by source host")
	fmt.Fprintln(w, "# TYPE sitebridge_media_fetch_attempts_total counter")
	for _, host := range fetchHosts {
		count := r.fetchAttempts[host]
		fmt.Fprintf(w, "sitebridge_media_fetch_attempts_total{host=\"%s\"} %d\n", host, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_media_fetch_failures_total Remote media fetch failures by source host")
	fmt.Fprintln(w, "# TYPE sitebridge_media_fetch_failures_total counter")
	for _, host := range fetchHosts {
		count := r.fetchFailures[host]
		fmt.Fprintf(w, "sitebridge_media_fetch_failures_total{host=\"%s\"} %d\n", host, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_field_updates_total Applied field updates by kind")
	fmt.Fprintln(w, "# TYPE sitebridge_field_updates_total counter")
	for _, kind := range updateKinds {
		count := r.fieldUpdates[kind]
		fmt.Fprintf(w, "sitebridge_field_updates_total{kind=\"%s\"} %d\n", kind, count)
	}

	fmt.Fprintln(w, "# HELP sitebridge_auth_denials_total Requests rejected by shared-secret verification")
	fmt.Fprintln(w, "# TYPE sitebridge_auth_denials_total counter")
	fmt.Fprintf(w, "sitebridge_auth_denials_total %d\n", r.authDenials.Load())
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedImportJobLabels() []ImportJobLabel {
	labels := make([]ImportJobLabel, 0, len(r.importEvents))
	for label := range r.importEvents {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Kind != labels[j].Kind {
			return labels[i].Kind < labels[j].Kind
		}
		return labels[i].Status < labels[j].Status
	})
	return labels
}

func (r *Recorder) sortedFetchHosts() []string {
	seen := make(map[string]struct{}, len(r.fetchAttempts)+len(r.fetchFailures))
	for host := range r.fetchAttempts {
		seen[host] = struct{}{}
	}
	for host := range r.fetchFailures {
		seen[host] = struct{}{}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

func (r *Recorder) sortedFieldUpdateKinds() []string {
	kinds := make([]string, 0, len(r.fieldUpdates))
	for kind := range r.fieldUpdates {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 24 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 6
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ImportJobStarted records the start of an import job on the default recorder.
func ImportJobStarted(kind string) {
	defaultRecorder.ImportJobStarted(kind)
}

// ImportJobCompleted records the completion of an import job on the default recorder.
func ImportJobCompleted(kind string) {
	defaultRecorder.ImportJobCompleted(kind)
}

// ImportJobFailed records a failed import job on the default recorder.
func ImportJobFailed(kind string) {
	defaultRecorder.ImportJobFailed(kind)
}

// ObserveFetchAttempt records a media fetch attempt on the default recorder.
func ObserveFetchAttempt(host string) {
	defaultRecorder.ObserveFetchAttempt(host)
}

// ObserveFetchFailure records a media fetch failure on the default recorder.
func ObserveFetchFailure(host string) {
	defaultRecorder.ObserveFetchFailure(host)
}

// ObserveAuthDenial counts an authorization denial on the default recorder.
func ObserveAuthDenial() {
	defaultRecorder.ObserveAuthDenial()
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
