package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/core/services"
	"github.com/custodia-labs/buildboard/internal/normalisers/build"
	"github.com/custodia-labs/buildboard/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock implementations ---

type mockQuery struct {
	page     *domain.BuildPage
	catalog  *domain.FacetCatalog
	problems []domain.Build
	err      error

	gotFilter domain.FilterCriteria
	gotSkip   int
	gotLimit  int
}

var _ driving.QueryService = (*mockQuery)(nil)

func (m *mockQuery) List(_ context.Context, filter domain.FilterCriteria, skip, limit int) (*domain.BuildPage, error) {
	m.gotFilter, m.gotSkip, m.gotLimit = filter, skip, limit
	if m.err != nil {
		return nil, m.err
	}
	if m.page != nil {
		return m.page, nil
	}
	return &domain.BuildPage{Builds: []domain.Build{}, Skip: skip, Limit: limit}, nil
}

func (m *mockQuery) Problems(context.Context) ([]domain.Build, error) {
	return m.problems, m.err
}

func (m *mockQuery) FacetCatalog(context.Context) (*domain.FacetCatalog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.catalog, nil
}

type mockManifests struct {
	manifests map[string]*domain.Manifest
	err       error
}

func (m *mockManifests) Get(_ context.Context, ref string) (*domain.Manifest, error) {
	if m.err != nil {
		return nil, m.err
	}
	man, ok := m.manifests[ref]
	if !ok {
		return nil, fmt.Errorf("build %q: %w", ref, domain.ErrNotFound)
	}
	return man, nil
}

type mockComparisons struct {
	gotA, gotB string
	err        error
}

func (m *mockComparisons) Compare(_ context.Context, a, b string) (*domain.ComparisonResult, error) {
	m.gotA, m.gotB = a, b
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ComparisonResult{A: a, B: b, Compared: []domain.ComparedEntry{}, Empty: true}, nil
}

type mockFeed struct {
	messages []domain.Message
}

func (m *mockFeed) Post(level domain.MessageLevel, text string) {
	m.messages = append(m.messages, domain.Message{Level: level, Text: text})
}

func (m *mockFeed) Messages() []domain.Message {
	return m.messages
}

// --- Helpers ---

func newTestServer(svc Services) *Server {
	return NewServer(Config{Addr: "127.0.0.1:0", DefaultLimit: 25}, svc, observability.NewMetrics())
}

func get(t *testing.T, s *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

// --- Tests ---

func TestListBuilds_Defaults(t *testing.T) {
	q := &mockQuery{}
	s := newTestServer(Services{Query: q})

	rec := get(t, s, "/allbuilds")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, q.gotSkip)
	assert.Equal(t, 25, q.gotLimit)
	assert.True(t, q.gotFilter.IsEmpty())
	assert.JSONEq(t, `{"builds":[],"hasMore":false,"total":0,"skip":0,"limit":25}`, rec.Body.String())
}

func TestListBuilds_ParsesQuery(t *testing.T) {
	q := &mockQuery{}
	s := newTestServer(Services{Query: q})
	filter := url.QueryEscape(`{"arch":["x86_64"],"license":["enterprise"]}`)

	rec := get(t, s, "/allbuilds?skip=10&limit=5&buildfilter="+filter)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, q.gotSkip)
	assert.Equal(t, 5, q.gotLimit)
	assert.Equal(t, []string{"x86_64"}, q.gotFilter.Accepted(domain.FieldArchitecture))
	assert.Equal(t, []string{"enterprise"}, q.gotFilter.Accepted(domain.FieldLicense))
}

func TestListBuilds_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative skip", "skip=-1"},
		{"zero limit", "limit=0"},
		{"non-numeric limit", "limit=ten"},
		{"malformed filter", "buildfilter=" + url.QueryEscape(`{"arch":`)},
		{"unknown field", "buildfilter=" + url.QueryEscape(`{"colour":["red"]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Services{Query: &mockQuery{}})

			rec := get(t, s, "/allbuilds?"+tt.query)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"invalid filter", domain.ErrInvalidFilter, http.StatusBadRequest},
		{"unavailable", fmt.Errorf("%w: timeout", domain.ErrAccessorUnavailable), http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Services{Query: &mockQuery{err: tt.err}})

			rec := get(t, s, "/allbuilds")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "Internal Server Error", decodeError(t, rec))
			}
		})
	}
}

func TestFacets_ETag(t *testing.T) {
	idx := domain.NewFacetIndex(map[domain.Category][]string{
		domain.CategoryOS: {"Windows", "CentOS 5"},
	})
	q := &mockQuery{catalog: &domain.FacetCatalog{Facets: idx.Sorted(), Fingerprint: "abc123"}}
	s := newTestServer(Services{Query: q})

	rec := get(t, s, "/filtercats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"abc123"`, rec.Header().Get("ETag"))

	var facets map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, []string{"CentOS 5", "Windows"}, facets["os"])
	assert.Equal(t, []string{}, facets["license"])

	rec = get(t, s, "/filtercats", "If-None-Match", `"abc123"`)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = get(t, s, "/filtercats", "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEtagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"a"`, `"a"`))
	assert.True(t, etagMatches(`"x", W/"a"`, `"a"`))
	assert.True(t, etagMatches(`*`, `"a"`))
	assert.False(t, etagMatches(``, `"a"`))
	assert.False(t, etagMatches(`"b"`, `"a"`))
}

func TestManifest_Passthrough(t *testing.T) {
	raw := domain.RawRecord{
		ID:       "couchbase-server/2.0.0/cb_2.0.0-1976-rel.rpm",
		Type:     domain.RecordTypeJSON,
		Modified: time.Date(2012, 11, 1, 0, 0, 0, 0, time.UTC),
		Length:   42,
		UserData: map[string]any{"product": "couchbase-server"},
	}
	m := &mockManifests{manifests: map[string]*domain.Manifest{
		raw.ID:                  domain.NewManifest(raw),
		"cb_2.0.0-1976-rel.rpm": domain.NewManifest(raw),
	}}
	s := newTestServer(Services{Manifests: m})

	for _, ref := range []string{"cb_2.0.0-1976-rel.rpm", url.PathEscape(raw.ID)} {
		rec := get(t, s, "/manifest-info/"+ref)

		require.Equal(t, http.StatusOK, rec.Code, ref)
		var got domain.RawRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, raw.ID, got.ID)
		assert.Equal(t, int64(42), got.Length)
	}

	rec := get(t, s, "/manifest-info/missing.rpm")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompare(t *testing.T) {
	c := &mockComparisons{}
	s := newTestServer(Services{Comparisons: c})

	rec := get(t, s, "/comparison-info/a.rpm/b.rpm")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.rpm", c.gotA)
	assert.Equal(t, "b.rpm", c.gotB)
	assert.JSONEq(t, `{"a":"a.rpm","b":"b.rpm","compared":[],"empty":true}`, rec.Body.String())
}

func TestProblemsAndMessages(t *testing.T) {
	feed := &mockFeed{}
	feed.Post(domain.MessageInfo, "scan complete")
	s := newTestServer(Services{
		Query:    &mockQuery{problems: []domain.Build{{ID: "x/readme.txt"}}},
		Messages: feed,
	})

	rec := get(t, s, "/problems")
	require.Equal(t, http.StatusOK, rec.Code)
	var problems ProblemsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problems))
	assert.Equal(t, 1, problems.Total)

	rec = get(t, s, "/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, "scan complete", msgs.Messages[0].Text)
}

func TestMessages_NoFeed(t *testing.T) {
	s := newTestServer(Services{})

	rec := get(t, s, "/messages")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestHealthMetricsAndNoRoute(t *testing.T) {
	s := newTestServer(Services{})

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = get(t, s, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `buildboard_http_requests_total{route="/health",status="200"} 1`)
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(Services{})

	rec := get(t, s, "/health", requestIDHeader, "req-42")

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestServe_Shutdown(t *testing.T) {
	s := newTestServer(Services{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestEndToEnd_RealServices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorpusStore()
	recs := []domain.RawRecord{
		{
			ID:       "couchbase-server/2.0.0/couchbase-server-enterprise_x86_64_2.0.0-1976-rel.rpm",
			Type:     domain.RecordTypeJSON,
			Modified: time.Date(2012, 11, 2, 0, 0, 0, 0, time.UTC),
			UserData: map[string]any{
				"product": "couchbase-server", "arch": "x86_64", "license": "enterprise",
				"manifest": map[string]any{"ns_server": "a1"},
			},
		},
		{
			ID:       "couchbase-server/2.0.1/couchbase-server-community_x86_2.0.1-120-rel.deb",
			Type:     domain.RecordTypeJSON,
			Modified: time.Date(2012, 11, 1, 0, 0, 0, 0, time.UTC),
			UserData: map[string]any{
				"product": "couchbase-server", "arch": "x86", "license": "community",
				"manifest": map[string]any{"ns_server": "a2"},
			},
		},
	}
	for i := range recs {
		require.NoError(t, store.SaveRecord(ctx, &recs[i]))
	}

	corpus := services.NewBuildCorpus(store, build.New("couchbase-server"), time.Second)
	agg := services.NewAggregator(nil, "couchbase-server")
	require.NoError(t, services.NewIngestOrchestrator(corpus, agg, nil, 0).Reaggregate(ctx))
	manifests := services.NewManifestService(corpus)
	s := newTestServer(Services{
		Query:       services.NewQueryService(corpus, agg, 100),
		Manifests:   manifests,
		Comparisons: services.NewComparisonService(manifests),
	})

	rec := get(t, s, "/allbuilds?buildfilter="+url.QueryEscape(`{"license":["community"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.BuildPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "x86", page.Builds[0].Architecture)

	rec = get(t, s, "/filtercats")
	require.Equal(t, http.StatusOK, rec.Code)
	var facets map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, []string{"2.0.0", "2.0.1"}, facets["version"])

	rec = get(t, s, "/comparison-info/couchbase-server-enterprise_x86_64_2.0.0-1976-rel.rpm/couchbase-server-community_x86_2.0.1-120-rel.deb")
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp domain.ComparisonResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	require.Len(t, cmp.Compared, 1)
	assert.Equal(t, domain.ChangeChanged, cmp.Compared[0].Change)
}
