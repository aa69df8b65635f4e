package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchStatusDecodesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/farmer/7/status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"farmer_id":     7,
			"name":          "Jane Doe",
			"season_number": 2,
			"has_insurance": true,
			"insurance_claim_status": "NONE",
			"stages": []map[string]any{
				{"stage_number": 1, "stage_name": "Stage 1: Soil Test", "status": "COMPLETED", "disbursement_amount": 50.0},
				{"stage_number": 2, "stage_name": "Stage 2: Inputs (Seed/Fertilizer)", "status": "UNLOCKED", "disbursement_amount": 175.0},
			},
			"current_status": map[string]any{
				"total_disbursed": 50.0,
				"score":           62.5,
				"risk_band":       "MEDIUM",
				"xai_factors":     []map[string]any{{"factor": "Base Score", "weight": 50}},
			},
		})
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).FetchStatus(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if snap.Name != "Jane Doe" || snap.SeasonNumber != 2 || !snap.HasInsurance {
		t.Errorf("unexpected snapshot header: %+v", snap)
	}
	if got := snap.FirstUnlockedStage(); got == nil || got.StageNumber != 2 {
		t.Errorf("FirstUnlockedStage = %+v, want stage 2", got)
	}
	if snap.SeasonComplete() {
		t.Error("SeasonComplete = true with an UNLOCKED stage present")
	}
}

func TestFetchStatusSeasonReference(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(StatusSnapshot{FarmerID: 3, Name: "A"})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).FetchStatus(context.Background(), 3, 11); err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if gotQuery != "season_id=11" {
		t.Errorf("query = %q, want season_id=11", gotQuery)
	}
}

func TestRegisterSendsPayloadAndReturnsID(t *testing.T) {
	var got Registration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/farmer/register" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding registration: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"farmer_id": 42})
	}))
	defer srv.Close()

	reg := Registration{
		Name: "Jane Doe", Phone: "+255700000000", Age: 34,
		Gender: "Female", IDDocument: "ID123", Crop: "Maize", LandSize: 2.5,
	}
	id, err := NewClient(srv.URL).Register(context.Background(), reg)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id != 42 {
		t.Errorf("farmer ID = %d, want 42", id)
	}
	if got != reg {
		t.Errorf("backend received %+v, want %+v", got, reg)
	}
}

func TestBackendErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Farmer not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchStatus(context.Background(), 99, 0)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Farmer not found" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestIngestReadingsQueryAndBody(t *testing.T) {
	var gotBody map[string]float64
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(IngestResult{Message: "ok", DroughtFlag: true})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).IngestReadings(context.Background(), 5, map[string]float64{"moisture": 12})
	if err != nil {
		t.Fatalf("IngestReadings: %v", err)
	}
	if gotQuery != "farmer_id=5" {
		t.Errorf("query = %q, want farmer_id=5", gotQuery)
	}
	if gotBody["moisture"] != 12 {
		t.Errorf("body = %v, want moisture:12", gotBody)
	}
	if !res.DroughtFlag {
		t.Error("drought flag not decoded")
	}
}
