package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/studioflow/class-payroll-service/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MailConfig
		want string
	}{
		{name: "no key logs", cfg: config.MailConfig{}, want: "*notify.LogNotifier"},
		{name: "key uses sendgrid", cfg: config.MailConfig{SendgridAPIKey: "SG.x", From: "a@b.c", AppName: "Studio"}, want: "*notify.SendgridNotifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(tt.cfg, testLogger())
			if got := typeName(n); got != tt.want {
				t.Errorf("NewNotifier() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(n Notifier) string {
	switch n.(type) {
	case *LogNotifier:
		return "*notify.LogNotifier"
	case *SendgridNotifier:
		return "*notify.SendgridNotifier"
	default:
		return "unknown"
	}
}

func TestSendgridNotifier(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	status := http.StatusAccepted

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	n := NewSendgridNotifier(config.MailConfig{SendgridAPIKey: "SG.test", From: "noreply@studio.test", AppName: "Studio"}, testLogger())
	n.host = srv.URL

	msg := PasswordReset{To: "ana@studio.test", Name: "Ana", ResetURL: "http://app/reset?token=abc", ExpiresIn: "1h0m0s"}

	if err := n.SendPasswordReset(context.Background(), msg); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if gotAuth != "Bearer SG.test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), "token=abc") {
		t.Errorf("reset link missing from body: %s", raw)
	}

	status = http.StatusUnauthorized
	if err := n.SendPasswordReset(context.Background(), msg); err == nil {
		t.Errorf("expected error on 401")
	}
}
