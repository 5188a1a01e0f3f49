package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/json-iterator/go"
)

func TestProcessorClientSendClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{status: http.StatusOK, want: true},
		{status: http.StatusCreated, want: true},
		{status: http.StatusBadRequest, want: true},
		{status: http.StatusUnprocessableEntity, want: true},
		{status: http.StatusInternalServerError, want: false},
		{status: http.StatusServiceUnavailable, want: false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		client := NewProcessorClient(ProcessorClientOptions{})
		got := client.Send(context.Background(), newPayment(t, "abc-1", "1"), srv.URL)
		if got != tt.want {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, got)
		}
		srv.Close()
	}
}

func TestProcessorClientAcceptedBandIsConfigurable(t *testing.T) {
	client := NewProcessorClient(ProcessorClientOptions{AcceptedStatusMax: 420})

	if !client.Accepted(http.StatusNotFound) {
		t.Error("404 should be accepted below 420")
	}
	if client.Accepted(http.StatusUnprocessableEntity) {
		t.Error("422 should be rejected with max 420")
	}
	if client.Accepted(http.StatusSwitchingProtocols) {
		t.Error("1xx should never be accepted")
	}
}

func TestProcessorClientSendsWirePayload(t *testing.T) {
	type wire struct {
		CorrelationId string          `json:"correlationId"`
		Amount        json.RawMessage `json:"amount"`
		RequestedAt   string          `json:"requestedAt"`
	}
	received := make(chan wire, 1)
	var path, contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		var got wire
		_ = json.Unmarshal(body, &got)
		received <- got
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newPayment(t, "abc-1", "19.9")
	client := NewProcessorClient(ProcessorClientOptions{})
	if !client.Send(context.Background(), p, srv.URL+"/") {
		t.Fatal("expected success")
	}

	got := <-received
	if path != "/payments" {
		t.Errorf("expected POST to /payments, got %s", path)
	}
	if contentType != "application/json" {
		t.Errorf("unexpected content type %s", contentType)
	}
	if got.CorrelationId != "abc-1" {
		t.Errorf("unexpected correlation id %s", got.CorrelationId)
	}
	if string(got.Amount) != "19.90" {
		t.Errorf("expected bare amount 19.90, got %s", string(got.Amount))
	}
	if _, err := time.Parse(time.RFC3339Nano, got.RequestedAt); err != nil {
		t.Errorf("requestedAt is not ISO-8601: %q", got.RequestedAt)
	}
}

func TestProcessorClientTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewProcessorClient(ProcessorClientOptions{PaymentTimeout: 50 * time.Millisecond, HealthTimeout: 20 * time.Millisecond})

	start := time.Now()
	if client.Send(context.Background(), newPayment(t, "slow-1", "1"), srv.URL) {
		t.Error("expected timeout to count as failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Send exceeded its timeout: %s", elapsed)
	}

	start = time.Now()
	if client.Probe(context.Background(), newPayment(t, "slow-2", "1"), srv.URL) {
		t.Error("expected probe timeout to count as failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Probe exceeded its timeout: %s", elapsed)
	}
}

func TestProcessorClientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewProcessorClient(ProcessorClientOptions{})
	if client.Send(context.Background(), newPayment(t, "abc-1", "1"), url) {
		t.Error("expected transport failure to count as failure")
	}
}
