package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/clock"
	"github.com/Silicom-11/synaplink-engine/internal/history"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
	"github.com/Silicom-11/synaplink-engine/internal/registry"
	"github.com/Silicom-11/synaplink-engine/internal/reservation"
	"github.com/Silicom-11/synaplink-engine/internal/store"
)

const idempotencyKey = "test-key-0123456789abcdef"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := registry.New()
	reg.Provision("silicom", []int{1, 2, 3, 4, 5})
	st := store.NewMemory()
	clk := clock.NewManual(time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC))
	logger := observability.NewLogger()
	engine := reservation.NewService(reg, st, clk, logger)
	agg := history.NewAggregator(st, nil)

	h := NewHandlers(engine, reg, agg, nil, nil, logger)
	srv := httptest.NewServer(SetupRouter(h, logger, nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func holdRequest(cabins []int, minutes int) map[string]any {
	return map[string]any{
		"userId":          "u-1001",
		"venueId":         "silicom",
		"cabinNumbers":    cabins,
		"durationMinutes": minutes,
	}
}

func TestListCabins(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/venues/silicom/cabins")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Cabins []struct {
			Number int    `json:"number"`
			State  string `json:"state"`
		} `json:"cabins"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Cabins) != 5 {
		t.Fatalf("got %d cabins, want 5", len(body.Cabins))
	}
	if body.Cabins[0].Number != 1 || body.Cabins[0].State != "Free" {
		t.Errorf("first cabin = %+v", body.Cabins[0])
	}
}

func TestCreateHoldEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/holds", holdRequest([]int{5}, 60))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var res struct {
		ID     uuid.UUID `json:"id"`
		Price  string    `json:"price"`
		Status string    `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "Held" || res.Price != "S/2.00" {
		t.Errorf("reservation = %+v", res)
	}

	// same single cabin again: conflict
	resp2 := postJSON(t, srv.URL+"/v1/holds", holdRequest([]int{5}, 60))
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("second hold status = %d, want 409", resp2.StatusCode)
	}
}

func TestCreateHoldValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/holds", holdRequest([]int{5}, 90))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("90m status = %d, want 422", resp.StatusCode)
	}
	var body struct {
		SupportedDurations []int `json:"supportedDurations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.SupportedDurations) != 3 {
		t.Errorf("supportedDurations = %v", body.SupportedDurations)
	}

	resp2 := postJSON(t, srv.URL+"/v1/holds", holdRequest(nil, 60))
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("empty cabins status = %d, want 400", resp2.StatusCode)
	}
}

func TestMissingIdempotencyKey(t *testing.T) {
	srv := newTestServer(t)

	data, _ := json.Marshal(holdRequest([]int{1}, 60))
	resp, err := http.Post(srv.URL+"/v1/holds", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without Idempotency-Key", resp.StatusCode)
	}
}

func TestConfirmAndHistoryFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/holds", holdRequest([]int{5}, 60))
	var held struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&held); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	confirmResp := postJSON(t, srv.URL+"/v1/holds/"+held.ID.String()+"/confirm", struct{}{})
	defer confirmResp.Body.Close()
	if confirmResp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200", confirmResp.StatusCode)
	}
	var confirmed struct {
		Status       string `json:"status"`
		PointsEarned int    `json:"pointsEarned"`
	}
	if err := json.NewDecoder(confirmResp.Body).Decode(&confirmed); err != nil {
		t.Fatal(err)
	}
	if confirmed.Status != "Confirmed" || confirmed.PointsEarned != 10 {
		t.Errorf("confirmed = %+v", confirmed)
	}

	histResp, err := http.Get(srv.URL + "/v1/users/u-1001/reservations?filter=active")
	if err != nil {
		t.Fatal(err)
	}
	defer histResp.Body.Close()
	var hist struct {
		Reservations []struct {
			Status string `json:"status"`
		} `json:"reservations"`
		Stats history.Stats `json:"stats"`
	}
	if err := json.NewDecoder(histResp.Body).Decode(&hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Reservations) != 1 || hist.Reservations[0].Status != "Confirmed" {
		t.Errorf("reservations = %+v", hist.Reservations)
	}
	if hist.Stats.Active != 1 || hist.Stats.PointsEarned != 10 {
		t.Errorf("stats = %+v", hist.Stats)
	}
}

func TestCancelEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/holds", holdRequest([]int{2}, 120))
	var held struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&held); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// wrong owner is rejected with a generic failure
	deny := postJSON(t, srv.URL+"/v1/reservations/"+held.ID.String()+"/cancel", map[string]string{"userId": "u-intruder"})
	deny.Body.Close()
	if deny.StatusCode != http.StatusForbidden {
		t.Errorf("foreign cancel status = %d, want 403", deny.StatusCode)
	}

	ok := postJSON(t, srv.URL+"/v1/reservations/"+held.ID.String()+"/cancel", map[string]string{"userId": "u-1001"})
	ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("cancel status = %d, want 200", ok.StatusCode)
	}

	// cancelling again reports the stale state
	again := postJSON(t, srv.URL+"/v1/reservations/"+held.ID.String()+"/cancel", map[string]string{"userId": "u-1001"})
	again.Body.Close()
	if again.StatusCode != http.StatusConflict {
		t.Errorf("repeat cancel status = %d, want 409", again.StatusCode)
	}
}

func TestUnknownReservation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/holds/"+uuid.NewString()+"/confirm", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
