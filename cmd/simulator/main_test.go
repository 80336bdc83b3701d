package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJitterLocation(t *testing.T) {
	base := Location{Lat: -30.0346, Lon: -51.2177}
	loc := jitterLocation(base, 500)

	latDelta := math.Abs(loc.Lat-base.Lat) * 111320.0
	if latDelta > 500 {
		t.Errorf("latitude jitter exceeds 500m: %f", latDelta)
	}
	lonDelta := math.Abs(loc.Lon-base.Lon) * 111320.0 * math.Cos(base.Lat*math.Pi/180)
	if lonDelta > 500 {
		t.Errorf("longitude jitter exceeds 500m: %f", lonDelta)
	}
}

func TestNextOdometer_OnlyGrows(t *testing.T) {
	km := 45000.0
	for i := 0; i < 100; i++ {
		next := nextOdometer(km)
		if next <= km {
			t.Fatalf("odometer went backwards: %f -> %f", km, next)
		}
		km = next
	}
}

func TestRandomPlate(t *testing.T) {
	for i := 0; i < 20; i++ {
		plate := randomPlate()
		if len(plate) != 7 {
			t.Errorf("expected 7-character plate, got %q", plate)
		}
	}
}

func TestPostJSON_SendsAuthHeader(t *testing.T) {
	authToken = "test-token"
	defer func() { authToken = "" }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]string{"localId": "t-1"})
	}))
	defer srv.Close()

	var trip Trip
	if err := postJSON(srv.URL, "/trips", Trip{VehicleID: "v-1"}, &trip); err != nil {
		t.Fatalf("postJSON failed: %v", err)
	}
	if trip.ID != "t-1" {
		t.Errorf("expected trip id t-1, got %q", trip.ID)
	}
}

func TestPostJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conflict", http.StatusConflict)
	}))
	defer srv.Close()

	if err := postJSON(srv.URL, "/vehicles", Vehicle{}, nil); err == nil {
		t.Fatal("expected error for 409 response")
	}
}
