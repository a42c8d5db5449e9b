package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "mailer-test"})
}

func newMailer(t *testing.T, endpoint string) *Mailer {
	t.Helper()
	m, err := New(config.MailerConfig{
		EndpointURL: endpoint,
		DefaultFrom: "no-reply@templeconnect.in",
		Timeout:     5 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	return m
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := newMailer(t, srv.URL)
	err := m.Send(context.Background(), Message{To: "devotee@example.com", Subject: "Booking confirmed", Body: "See you soon."})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "devotee@example.com" || got.From != "no-reply@templeconnect.in" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newMailer(t, srv.URL)
	if err := m.Send(context.Background(), Message{To: "devotee@example.com"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	m := newMailer(t, srv.URL)
	if err := m.Send(context.Background(), Message{To: "devotee@example.com"}); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestSendDisabled(t *testing.T) {
	t.Parallel()

	m := newMailer(t, "")
	if m.Enabled() {
		t.Fatal("expected disabled mailer")
	}
	if err := m.Send(context.Background(), Message{To: "devotee@example.com"}); err != nil {
		t.Fatalf("disabled mailer must drop silently, got %v", err)
	}
}
