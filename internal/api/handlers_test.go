package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetroute/internal/auth"
	"fleetroute/internal/config"
	"fleetroute/internal/metrics"
	"fleetroute/internal/model"
	"fleetroute/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	verifier, err := auth.New("dev", "")
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	s := New(store.NewMemory(), NewMemoryBroker(), verifier, metrics.New(), config.Default())
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func optimizeRequest() model.OptimizeRequest {
	return model.OptimizeRequest{
		Vehicles: model.Table{
			Headers: []string{"Id", "Start Lat", "Start Lng", "End Lat", "End Lng", "Capacity"},
			Rows:    [][]any{{"v1", 0.0, 0.0, 0.0, 0.0, 10}},
		},
		Shipments: model.Table{
			Headers: []string{
				"Pickup Id", "Pickup Location Lat", "Pickup Location Lng",
				"Delivery Id", "Delivery Location Lat", "Delivery Location Lng", "Quantity",
			},
			Rows: [][]any{{"p1", 0.0, 1.0, "d1", 0.0, 2.0, 5}},
		},
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	s, ts := newTestServer(t)

	events, cancel := s.Broker.Subscribe(tenantTopic("t_demo"))
	defer cancel()

	resp := postJSON(t, ts.URL+"/v1/optimize", optimizeRequest(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out struct {
		PlanID      string             `json:"plan_id"`
		Notice      string             `json:"notice"`
		Assignments []model.Assignment `json:"assignments"`
	}
	decodeBody(t, resp, &out)
	if out.PlanID == "" {
		t.Fatalf("plan_id missing")
	}
	if out.Notice == "" {
		t.Fatalf("unconfigured provider must fall back with a notice")
	}
	if len(out.Assignments) != 1 || len(out.Assignments[0].Stops) != 4 {
		t.Fatalf("assignments %+v", out.Assignments)
	}

	var ev Event
	if err := json.Unmarshal(recv(t, events), &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Type != "plan.completed" || ev.PlanID != out.PlanID {
		t.Fatalf("event %+v", ev)
	}

	// The plan is retrievable afterwards.
	getResp, err := http.Get(ts.URL + "/v1/plans/" + out.PlanID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get plan status %d", getResp.StatusCode)
	}
	var plan model.Plan
	decodeBody(t, getResp, &plan)
	if plan.ID != out.PlanID || plan.Status != "completed" {
		t.Fatalf("plan %+v", plan)
	}

	listResp, err := http.Get(ts.URL + "/v1/plans")
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	var list struct {
		Items []model.Plan `json:"items"`
	}
	decodeBody(t, listResp, &list)
	if len(list.Items) != 1 {
		t.Fatalf("items %+v", list.Items)
	}
}

func TestOptimizeZeroVehicles(t *testing.T) {
	_, ts := newTestServer(t)
	req := optimizeRequest()
	req.Vehicles = model.Table{}
	resp := postJSON(t, ts.URL+"/v1/optimize", req, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out struct {
		Assignments []model.Assignment `json:"assignments"`
		Summary     map[string]any     `json:"summary"`
	}
	decodeBody(t, resp, &out)
	if len(out.Assignments) != 0 || len(out.Summary) != 0 {
		t.Fatalf("zero vehicles must yield empty result, got %+v", out)
	}
}

func TestOptimizeRequiresDispatchRole(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/optimize", optimizeRequest(), map[string]string{"X-Role": "viewer"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOptimizeCSV(t *testing.T) {
	_, ts := newTestServer(t)
	body := map[string]any{
		"vehicles_csv":  "Id,Start Lat,Start Lng,Capacity\nv1,0,0,10\n",
		"shipments_csv": "Pickup Id,Pickup Location Lat,Pickup Location Lng,Delivery Location Lat,Delivery Location Lng,Quantity\np1,0,1,0,2,5\n",
	}
	resp := postJSON(t, ts.URL+"/v1/optimize/csv", body, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out struct {
		PlanID      string             `json:"plan_id"`
		Assignments []model.Assignment `json:"assignments"`
	}
	decodeBody(t, resp, &out)
	if out.PlanID == "" || len(out.Assignments) != 1 {
		t.Fatalf("csv optimize %+v", out)
	}
}

func TestGetPlanNotFound(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/plans/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
}

func TestZoneCRUDOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/zones", model.Zone{
		Name:    "downtown",
		Type:    model.ZoneNoGo,
		Polygon: [][]float64{{0, 0}, {0, 1}, {1, 1}},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var z model.Zone
	decodeBody(t, resp, &z)
	if z.ID == "" {
		t.Fatalf("zone id missing")
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/zones/"+z.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", delResp.StatusCode)
	}
}

func TestZoneValidation(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/zones", model.Zone{
		Type:    "blockade",
		Polygon: [][]float64{{0, 0}, {0, 1}, {1, 1}},
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
}

func TestSubscriptionValidation(t *testing.T) {
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/subscriptions", map[string]any{"url": "ftp://example.com/hook"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
