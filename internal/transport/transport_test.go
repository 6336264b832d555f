package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/enforcer"
	"github.com/spigell/hr-screener/internal/inspector"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/profiles"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
)

// traceRecorder captures the trace ids a stage receives.
type traceRecorder struct {
	mu     sync.Mutex
	traces []string
	next   pipeline.Scorer
}

func (t *traceRecorder) Score(ctx context.Context, req *screening.Request) (*screening.ScoringResult, error) {
	t.mu.Lock()
	t.traces = append(t.traces, screening.TraceID(ctx)+"|"+req.TraceID)
	t.mu.Unlock()
	return t.next.Score(ctx, req)
}

func (t *traceRecorder) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.traces...)
}

type deployment struct {
	orchestrator *httptest.Server
	scoring      *httptest.Server
	audit        *Client
	recorder     *traceRecorder
	pipeline     *pipeline.Orchestrator
}

func deploy(t *testing.T) *deployment {
	t.Helper()

	store, err := profiles.Default()
	require.NoError(t, err)

	log := auditlog.New(auditlog.NewFileStore(filepath.Join(t.TempDir(), "audit.json"), nil), nil)
	recorder := &traceRecorder{next: pipeline.NewLocalScorer(scoring.New(store))}

	inspectorSrv := httptest.NewServer(NewInspectorServer(pipeline.NewLocalInspector(inspector.New()), nil).Handler())
	scoringSrv := httptest.NewServer(NewScoringServer(recorder, nil).Handler())
	enforcerSrv := httptest.NewServer(NewEnforcerServer(pipeline.NewLocalEnforcer(enforcer.New()), nil).Handler())
	auditSrv := httptest.NewServer(NewAuditServer(log, nil).Handler())

	client := func(url string) *Client { return NewClient(url, time.Second, zap.NewNop()) }

	stages := pipeline.Stages{
		Inspector: client(inspectorSrv.URL),
		Scorer:    client(scoringSrv.URL),
		Enforcer:  client(enforcerSrv.URL),
		Auditor:   client(auditSrv.URL),
	}
	o := pipeline.New(stages, pipeline.Config{StageTimeout: time.Second, RetryDelay: time.Millisecond}, nil)

	downstream := map[string]HealthChecker{
		pipeline.StageInspector: client(inspectorSrv.URL),
		pipeline.StageScoring:   client(scoringSrv.URL),
		pipeline.StageEnforcer:  client(enforcerSrv.URL),
		pipeline.StageAudit:     client(auditSrv.URL),
	}
	orchestratorSrv := httptest.NewServer(NewOrchestratorServer(o, downstream, nil).Handler())

	t.Cleanup(func() {
		orchestratorSrv.Close()
		o.Close()
		inspectorSrv.Close()
		scoringSrv.Close()
		enforcerSrv.Close()
		auditSrv.Close()
	})

	return &deployment{
		orchestrator: orchestratorSrv,
		scoring:      scoringSrv,
		audit:        client(auditSrv.URL),
		recorder:     recorder,
		pipeline:     o,
	}
}

func TestRemotePipeline(t *testing.T) {
	d := deploy(t)
	client := NewClient(d.orchestrator.URL, 5*time.Second, nil)
	ctx := context.Background()

	resp, err := client.Submit(ctx, screening.RawRequest{
		CandidateID:   "C-100",
		CandidateName: "Jane Doe",
		Role:          "V&V Engineer",
		Description:   "MC/DC structural coverage with LDRA. Phone 555-123-4567.",
	})
	require.NoError(t, err)

	assert.Equal(t, screening.DecisionApproved, resp.Decision)
	assert.Equal(t, 10, resp.RiskScore)
	assert.Len(t, resp.MatchedFactors, 3)
	assert.NotEmpty(t, resp.TraceID)

	d.pipeline.Wait()

	traces := d.recorder.all()
	require.Len(t, traces, 1)
	assert.Equal(t, resp.TraceID+"|"+resp.TraceID, traces[0])

	records, err := d.audit.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resp.TraceID, records[0].TraceID)
	assert.Equal(t, "J*** D***", records[0].CandidateName)
	assert.Equal(t, "V&V Engineer", records[0].AppliedRole)
	assert.NotContains(t, records[0].RedactedDescription, "4567")
	assert.True(t, strings.HasPrefix(records[0].AuditID, "AUD-"))
}

func TestRemoteValidationError(t *testing.T) {
	d := deploy(t)

	_, err := NewClient(d.orchestrator.URL, time.Second, nil).Submit(context.Background(), screening.RawRequest{Description: "Ada"})

	var status *StatusError
	require.True(t, errors.As(err, &status), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, status.Code)
	assert.Contains(t, status.Message, "candidate_id")

	d.pipeline.Wait()
	records, err := d.audit.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRemoteScoringDownFailsClosed(t *testing.T) {
	d := deploy(t)
	d.scoring.Close()

	resp, err := NewClient(d.orchestrator.URL, 5*time.Second, nil).Submit(context.Background(), screening.RawRequest{
		CandidateID: "C-1",
		Role:        "Avionics Software Engineer",
		Description: "DO-178C, Ada, MISRA, VxWorks",
	})
	require.NoError(t, err)

	assert.Equal(t, screening.DecisionError, resp.Decision)
	assert.Equal(t, 100, resp.RiskScore)
	assert.Contains(t, resp.RationaleMessage, "stage scoring unavailable")

	d.pipeline.Wait()
	records, err := d.audit.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, screening.DecisionError, records[0].FinalVerdict)

	err = NewClient(d.orchestrator.URL, time.Second, nil).Health(context.Background())
	var status *StatusError
	require.True(t, errors.As(err, &status), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, status.Code)
}

func TestHealth(t *testing.T) {
	d := deploy(t)

	require.NoError(t, NewClient(d.orchestrator.URL, time.Second, nil).Health(context.Background()))
	require.NoError(t, d.audit.Health(context.Background()))
}

func TestTraceHeaderIsEchoed(t *testing.T) {
	srv := httptest.NewServer(NewInspectorServer(pipeline.NewLocalInspector(inspector.New()), nil).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+PathInspect, strings.NewReader(`{"text":"SSN 123-45-6789"}`))
	require.NoError(t, err)
	req.Header.Set(TraceHeader, "trace-abc")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-abc", resp.Header.Get(TraceHeader))

	inspection, err := NewClient(srv.URL, time.Second, nil).Inspect(context.Background(), "SSN 123-45-6789")
	require.NoError(t, err)
	assert.False(t, inspection.Safe)
	assert.Equal(t, inspector.ReasonPII, inspection.Reason)
	assert.Equal(t, "national_id", inspection.Rule)
}

func TestBadBody(t *testing.T) {
	srv := httptest.NewServer(NewEnforcerServer(pipeline.NewLocalEnforcer(enforcer.New()), nil).Handler())
	defer srv.Close()

	for _, body := range []string{`{not json`, `{}`} {
		resp, err := http.Post(srv.URL+PathEnforce, contentType, strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		expect int
	}{
		{err: &screening.ValidationError{Fields: []string{"role"}}, expect: http.StatusBadRequest},
		{err: &BadRequest{Err: errors.New("eof")}, expect: http.StatusBadRequest},
		{err: fmt.Errorf("wrapped: %w", &screening.StageUnavailable{Stage: "scoring"}), expect: http.StatusServiceUnavailable},
		{err: &screening.StorageCorruption{Path: "audit.json"}, expect: http.StatusInternalServerError},
		{err: &StatusError{Code: 500, Status: "500 Internal Server Error"}, expect: http.StatusBadGateway},
		{err: errors.New("boom"), expect: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestSlowAuditAnswerIsAppendedOnce(t *testing.T) {
	store, err := profiles.Default()
	require.NoError(t, err)

	log := auditlog.New(auditlog.NewFileStore(filepath.Join(t.TempDir(), "audit.json"), nil), nil)
	audit := NewAuditServer(log, nil).Handler()

	// The append is committed right away, the answer arrives after the stage
	// timeout has expired.
	answered := make(chan struct{}, 2)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		audit.ServeHTTP(rec, r)
		time.Sleep(150 * time.Millisecond)

		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
		answered <- struct{}{}
	})
	auditSrv := httptest.NewServer(slow)
	defer auditSrv.Close()

	stages := pipeline.Local(scoring.New(store), nil)
	stages.Auditor = NewClient(auditSrv.URL, time.Second, nil)

	o := pipeline.New(stages, pipeline.Config{
		StageTimeout: 100 * time.Millisecond,
		Retries:      1,
		RetryDelay:   time.Millisecond,
	}, nil)
	defer o.Close()

	verdict, err := o.Submit(context.Background(), screening.RawRequest{
		CandidateID: "C-9",
		Role:        "Avionics Software Engineer",
		Description: "DO-178C, Ada, MISRA",
	})
	require.NoError(t, err)
	o.Wait()

	select {
	case <-answered:
	case <-time.After(2 * time.Second):
		t.Fatal("audit service never answered")
	}

	records, err := log.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, verdict.TraceID, records[0].TraceID)
}
