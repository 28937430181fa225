package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/deptline/internal/directory"
	"github.com/kalambet/deptline/internal/history"
	"github.com/kalambet/deptline/internal/resolver"
)

type mockResolver struct {
	resolution resolver.Resolution
	confirmErr error
	addErr     error
	deps       []directory.Department

	confirmedWith *bool
	addedName     string
}

func (m *mockResolver) Resolve(_ context.Context, query string) resolver.Resolution {
	res := m.resolution
	res.Query = query
	return res
}

func (m *mockResolver) Confirm(_, _, _ string, confirmed bool) error {
	m.confirmedWith = &confirmed
	return m.confirmErr
}

func (m *mockResolver) Add(name, _ string, _ []string) error {
	m.addedName = name
	return m.addErr
}

func (m *mockResolver) Departments() []directory.Department {
	return m.deps
}

type mockHistory struct {
	records []history.Resolution
	gotLimit int
}

func (m *mockHistory) ListResolutions(limit, _ int) ([]history.Resolution, error) {
	m.gotLimit = limit
	return m.records, nil
}

const testToken = "test-token"

func newTestServer(t *testing.T, res ResolverService, hist HistoryLister) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewAppHandler(AppDeps{Resolver: res, History: hist, Token: testToken}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv := newTestServer(t, &mockResolver{}, nil)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestResolveRequiresAuth(t *testing.T) {
	srv := newTestServer(t, &mockResolver{}, nil)
	resp, err := http.Post(srv.URL+"/resolve", "application/json", strings.NewReader(`{"query":"x"}`))
	if err != nil {
		t.Fatalf("POST /resolve: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestResolveSuccess(t *testing.T) {
	mock := &mockResolver{resolution: resolver.Resolution{
		Interpreted: "Student Housing",
		Found:       true,
		Department:  "Student Housing",
		Phone:       "(713) 743-6000",
		Source:      resolver.SourceDatabase,
	}}
	srv := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resolve", `{"query":"housing"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got ResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !got.Success || got.Phone != "(713) 743-6000" || got.Source != "database" {
		t.Errorf("response = %+v", got)
	}
	if got.Query != "housing" {
		t.Errorf("Query = %q", got.Query)
	}
}

func TestResolveMissCarriesReason(t *testing.T) {
	mock := &mockResolver{resolution: resolver.Resolution{
		Interpreted: "Nonexistent",
		Reason:      "no pages found",
	}}
	srv := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/resolve", `{"query":"nonexistent"}`)
	defer resp.Body.Close()

	var got ResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Success || got.Error != "no pages found" {
		t.Errorf("response = %+v", got)
	}
}

func TestResolveRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t, &mockResolver{}, nil)
	resp := doJSON(t, http.MethodPost, srv.URL+"/resolve", `{}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestValidateForwardsConfirmation(t *testing.T) {
	mock := &mockResolver{}
	srv := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/validate",
		`{"query":"bookstore","department":"UH Bookstore","phone":"(713) 743-3333","confirmed":true}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if mock.confirmedWith == nil || !*mock.confirmedWith {
		t.Error("confirmation not forwarded")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, &mockResolver{}, nil)
	resp := doJSON(t, http.MethodPost, srv.URL+"/validate", `{"query":"x"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListDepartments(t *testing.T) {
	mock := &mockResolver{deps: []directory.Department{
		{Name: "Bursar", PhoneNumber: "(713) 743-1010"},
	}}
	srv := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/departments", "")
	defer resp.Body.Close()

	var got struct {
		Departments []directory.Department `json:"departments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Departments) != 1 || got.Departments[0].Name != "Bursar" {
		t.Errorf("departments = %+v", got.Departments)
	}
}

func TestAddDepartment(t *testing.T) {
	mock := &mockResolver{}
	srv := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/departments",
		`{"name":"Campus Police","phoneNumber":"713-743-3333","aliases":["police"]}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if mock.addedName != "Campus Police" {
		t.Errorf("addedName = %q", mock.addedName)
	}
}

func TestListResolutions(t *testing.T) {
	hist := &mockHistory{records: []history.Resolution{{ID: "r1", Query: "housing"}}}
	srv := newTestServer(t, &mockResolver{}, hist)

	resp := doJSON(t, http.MethodGet, srv.URL+"/resolutions?limit=5", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if hist.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", hist.gotLimit)
	}

	var got struct {
		Resolutions []history.Resolution `json:"resolutions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Resolutions) != 1 || got.Resolutions[0].ID != "r1" {
		t.Errorf("resolutions = %+v", got.Resolutions)
	}
}

func TestListResolutionsWithoutHistory(t *testing.T) {
	srv := newTestServer(t, &mockResolver{}, nil)
	resp := doJSON(t, http.MethodGet, srv.URL+"/resolutions", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
