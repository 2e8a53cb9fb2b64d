package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type payload struct {
	Total int    `json:"total"`
	Label string `json:"label"`
}

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client, time.Minute), mr
}

func TestCacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return payload{Total: 42, Label: "march"}, nil
	}

	var first, second payload
	if err := cm.Reports.CacheOrExecute(ctx, ReportKey(KindDashboard, "2024-03"), &first, time.Minute, fetch); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := cm.Reports.CacheOrExecute(ctx, ReportKey(KindDashboard, "2024-03"), &second, time.Minute, fetch); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if first != second || second.Total != 42 {
		t.Errorf("got %+v and %+v", first, second)
	}
	if !mr.Exists("report:dashboard:2024-03") {
		t.Errorf("expected prefixed key in redis, have %v", mr.Keys())
	}
}

func TestCacheOrExecuteDoesNotCacheErrors(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var out payload
	err := cm.Reports.CacheOrExecute(ctx, "grid:2024-03", &out, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("failed fetch must not be cached, have %v", mr.Keys())
	}
}

func TestInvalidatePeriods(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	keys := []string{
		ReportKey(KindDashboard, "2024-03"),
		ReportKey(KindGrid, "2024-03"),
		ReportKey(KindSlotDetail, "2024-03", "abc"),
		ReportKey(KindPayroll, "2024-03", "teacher", "7"),
		ReportKey(KindDashboard, "2024-04"),
		ReportKey(KindGrid, "2024-04"),
		ReportKey(KindGrid, "2024-02"),
	}
	for _, k := range keys {
		if err := cm.Reports.Set(ctx, k, payload{Total: 1}, time.Minute); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	cm.InvalidatePeriods(ctx, []string{"2024-03"}, []string{"2024-04"})

	tests := []struct {
		key  string
		want bool
	}{
		{"report:dashboard:2024-03", false},
		{"report:grid:2024-03", false},
		{"report:detail:2024-03:abc", false},
		{"report:payroll:2024-03:teacher:7", false},
		{"report:dashboard:2024-04", false},
		{"report:grid:2024-04", true},
		{"report:grid:2024-02", true},
	}
	for _, tt := range tests {
		if got := mr.Exists(tt.key); got != tt.want {
			t.Errorf("Exists(%s) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNilClientDegrades(t *testing.T) {
	cm := NewCacheManager(nil, 0)
	ctx := context.Background()

	if cm.ReportTTL() != ReportCacheConfig.TTL {
		t.Errorf("ReportTTL = %v, want default", cm.ReportTTL())
	}
	if err := cm.HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck = %v, want ErrCacheNotAvailable", err)
	}

	calls := 0
	var out payload
	for i := 0; i < 2; i++ {
		if err := cm.Reports.CacheOrExecute(ctx, "k", &out, time.Minute, func() (interface{}, error) {
			calls++
			return payload{Total: 3}, nil
		}); err != nil {
			t.Fatalf("CacheOrExecute: %v", err)
		}
	}
	if calls != 2 || out.Total != 3 {
		t.Errorf("calls = %d, out = %+v", calls, out)
	}
	cm.InvalidateAllReports(ctx)
}
