package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	handler "github.com/samirrijal/trackmotion/internal/adapters/http"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
)

// ---- Mocks ----

type mockAnalysisRepo struct {
	mu    sync.Mutex
	saved []*domain.Analysis
}

func (m *mockAnalysisRepo) Save(ctx context.Context, a *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, a)
	return nil
}

func (m *mockAnalysisRepo) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.saved {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockAnalysisRepo) UpdateArtifacts(ctx context.Context, id string, arts []domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.saved {
		if a.ID == id {
			a.Artifacts = arts
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockAnalysisRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AnalysisSummary
	for i := len(m.saved) - 1; i >= 0; i-- {
		out = append(out, m.saved[i].Summary())
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

// ---- Fixtures ----

const rideGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>ride</name><trkseg>
    <trkpt lat="0" lon="0"><time>2024-05-01T08:00:00Z</time></trkpt>
    <trkpt lat="0.001" lon="0"><time>2024-05-01T08:00:01Z</time></trkpt>
    <trkpt lat="0.002" lon="0"><time>2024-05-01T08:00:02Z</time></trkpt>
  </trkseg></trk>
</gpx>`

const untimedGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg><trkpt lat="0" lon="0"></trkpt></trkseg></trk>
</gpx>`

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouteOptions{Version: "test"})
	return app
}

func makeDeps(repo *mockAnalysisRepo, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Analyses: usecases.NewAnalysisService(usecases.AnalysisDeps{
			Distance: geospatial.ModelWGS84,
			Source:   gpx.NewReader(),
			Tables:   csvexport.NewWriter(),
			Repo:     repo,
		}),
		DB: mockPinger{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func upload(t *testing.T, app *fiber.App, query, body string) (*domain.Analysis, int) {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/analyses"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/gpx+xml")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		return nil, resp.StatusCode
	}
	var a domain.Analysis
	if err := json.Unmarshal(readBody(t, resp.Body), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &a, resp.StatusCode
}

// ---- Create ----

func TestCreateAnalysis_Extended(t *testing.T) {
	repo := &mockAnalysisRepo{}
	app := setupApp(makeDeps(repo))

	req := httptest.NewRequest("POST", "/v1/analyses?name=morning.gpx", strings.NewReader(rideGPX))
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	body := readBody(t, resp.Body)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var k map[string]json.RawMessage
	if err := json.Unmarshal(raw["kinematics"], &k); err != nil {
		t.Fatalf("decode kinematics: %v", err)
	}
	for _, key := range []string{"elapsed_s", "ns_displacement_km", "ew_displacement_km", "ns_velocity_kms", "ns_acceleration_kms2"} {
		if _, ok := k[key]; !ok {
			t.Errorf("missing %s", key)
		}
	}

	var a domain.Analysis
	_ = json.Unmarshal(body, &a)
	if a.TrackName != "morning" || a.SampleCount != 3 {
		t.Errorf("unexpected analysis: %s, %d samples", a.TrackName, a.SampleCount)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/analyses/"+a.ID {
		t.Errorf("Location = %q", loc)
	}
	if len(repo.saved) != 1 {
		t.Errorf("expected 1 saved analysis, got %d", len(repo.saved))
	}
}

func TestCreateAnalysis_MinimalOmitsVelocity(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))

	req := httptest.NewRequest("POST", "/v1/analyses?variant=minimal", strings.NewReader(rideGPX))
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if strings.Contains(string(readBody(t, resp.Body)), "ns_velocity_kms") {
		t.Error("minimal analysis must not include velocity")
	}
}

func TestCreateAnalysis_BadRequests(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))

	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"unknown variant", "?variant=full", rideGPX, 400},
		{"empty body", "", "", 400},
		{"malformed gpx", "", "<gpx><trk>", 422},
		{"no timestamps", "", untimedGPX, 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/analyses"+tt.query, strings.NewReader(tt.body))
			resp, _ := app.Test(req, -1)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var apiErr handler.APIError
			if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
				t.Fatalf("expected error envelope: %v", err)
			}
			if apiErr.Status != tt.want || apiErr.Code == "" || apiErr.RequestID == "" {
				t.Errorf("unexpected envelope %+v", apiErr)
			}
		})
	}
}

// ---- Read ----

func TestGetAnalysis(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	a, code := upload(t, app, "", rideGPX)
	if a == nil {
		t.Fatalf("upload failed: %d", code)
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses/"+a.ID, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("Cache-Control = %q", cc)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}
	req := httptest.NewRequest("GET", "/v1/analyses/"+a.ID, nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses/nope", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalysisCSV(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	a, _ := upload(t, app, "", rideGPX)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses/"+a.ID+"/csv", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(string(readBody(t, resp.Body))), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "elapsed_time_s,ns_displacement_km") {
		t.Errorf("unexpected csv: %v", lines)
	}
}

func TestListAnalyses_Pagination(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	for _, v := range []string{"minimal", "extended"} {
		if a, code := upload(t, app, "?variant="+v, rideGPX); a == nil {
			t.Fatalf("upload %s: %d", v, code)
		}
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses?limit=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var page struct {
		Data       []domain.AnalysisSummary `json:"data"`
		Pagination handler.Pagination       `json:"pagination"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &page); err != nil {
		t.Fatal(err)
	}
	if page.Pagination.Total != 2 || len(page.Data) != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Data[0].Variant != domain.VariantExtended {
		t.Errorf("expected newest first, got %s", page.Data[0].Variant)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("Link = %q", link)
	}
}

func TestPaginationLinks(t *testing.T) {
	links := handler.Pagination{Offset: 20, Limit: 10, Total: 45}.Links("/v1/analyses")
	want := []string{
		`</v1/analyses?offset=0&limit=10>; rel="first"`,
		`</v1/analyses?offset=10&limit=10>; rel="prev"`,
		`</v1/analyses?offset=30&limit=10>; rel="next"`,
		`</v1/analyses?offset=40&limit=10>; rel="last"`,
	}
	if strings.Join(links, "|") != strings.Join(want, "|") {
		t.Errorf("links = %v", links)
	}
}

// ---- GraphQL ----

func TestGraphQL_Analyses(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	a, _ := upload(t, app, "", rideGPX)

	q := `{"query":"{ analyses(limit: 5) { total items { id track_name duration_s } } analysis(id: \"` + a.ID + `\") { sample_count kinematics { elapsed_s ns_velocity_kms } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Analyses struct {
				Total int `json:"total"`
				Items []struct {
					ID        string  `json:"id"`
					Duration  float64 `json:"duration_s"`
					TrackName string  `json:"track_name"`
				} `json:"items"`
			} `json:"analyses"`
			Analysis struct {
				SampleCount int `json:"sample_count"`
				Kinematics  struct {
					Elapsed  []float64 `json:"elapsed_s"`
					Velocity []float64 `json:"ns_velocity_kms"`
				} `json:"kinematics"`
			} `json:"analysis"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Errors) > 0 {
		t.Fatalf("graphql errors: %v", out.Errors)
	}
	if out.Data.Analyses.Total != 1 || out.Data.Analyses.Items[0].ID != a.ID || out.Data.Analyses.Items[0].Duration != 2 {
		t.Errorf("unexpected analyses %+v", out.Data.Analyses)
	}
	if out.Data.Analysis.SampleCount != 3 || len(out.Data.Analysis.Kinematics.Velocity) != 3 {
		t.Errorf("unexpected analysis %+v", out.Data.Analysis)
	}
}

func TestGraphQL_BadBody(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.Unmarshal(readBody(t, resp.Body), &body)
	if body["status"] != "healthy" || body["version"] != "test" {
		t.Errorf("unexpected health %v", body)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name string
		db   handler.Pinger
		want int
	}{
		{"db up", mockPinger{}, 200},
		{"db down", mockPinger{err: errors.New("refused")}, 503},
		{"no db", nil, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(&mockAnalysisRepo{}, func(d *handler.Dependencies) { d.DB = tt.db }))
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps(&mockAnalysisRepo{}))
	_, _ = upload(t, app, "", rideGPX)

	resp, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "trackmotion_pipeline_runs_total") {
		t.Error("expected pipeline metrics")
	}
}
