package classifier

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ImageBase64 == "" {
			t.Error("expected base64 image payload")
		}
		json.NewEncoder(w).Encode(predictResponse{
			Probabilities: []float64{0.6, 0.2, 0.1, 0.1},
			ModelVersion:  "v2",
		})
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, "v2", 5*time.Second)
	probs, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(probs) != 4 || probs[0] != 0.6 {
		t.Errorf("probs = %v, want [0.6 0.2 0.1 0.1]", probs)
	}
}

func TestHTTPClassifier_WrongVectorLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Probabilities: []float64{0.5, 0.5}})
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, "v2", 5*time.Second)
	if _, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err == nil {
		t.Fatal("expected error for short probability vector")
	}
}

func TestHTTPClassifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, "v2", 5*time.Second)
	if _, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPClassifier_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, "v2", 5*time.Second)
	status := c.Status(context.Background())
	if !status.Loaded {
		t.Error("expected loaded status from a healthy model service")
	}
	if status.Backend != "http" {
		t.Errorf("backend = %q, want http", status.Backend)
	}
	if status.NumClasses != 4 {
		t.Errorf("num classes = %d, want 4", status.NumClasses)
	}
}

func TestHTTPClassifier_StatusUnreachable(t *testing.T) {
	c := NewHTTPClassifier("http://127.0.0.1:1", "v2", time.Second)
	if c.Status(context.Background()).Loaded {
		t.Error("unreachable model service must report not loaded")
	}
}

func TestFallbackClassifier(t *testing.T) {
	c := NewFallbackClassifier("v1")
	probs, err := c.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := []float64{0.1, 0.1, 0.1, 0.7}
	for i := range want {
		if probs[i] != want[i] {
			t.Errorf("probs[%d] = %v, want %v", i, probs[i], want[i])
		}
	}

	// The returned slice is a copy; mutating it must not poison later
	// calls.
	probs[3] = 0.0
	again, _ := c.Classify(context.Background(), nil)
	if again[3] != 0.7 {
		t.Error("fallback vector was mutated by a caller")
	}
}
