package cache

import (
	"context"
	"log/slog"
)

// Report kinds, also the first segment of every report key
const (
	KindDashboard  = "dashboard"
	KindProfitLoss = "profit_loss"
	KindGrid       = "grid"
	KindSlotDetail = "detail"
	KindPayroll    = "payroll"
)

const fixedValuesKey = "fixed_values"

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidatePeriods drops every cached report of the given periods (yyyy-mm keys).
// The dashboard of the following month compares against the changed one, so
// nextPeriodKeys drops those dashboards too.
func (cm *CacheManager) InvalidatePeriods(ctx context.Context, periodKeys []string, nextPeriodKeys []string) {
	for _, key := range periodKeys {
		SafeInvalidatePattern(ctx, cm.Reports, "*:"+key)
		SafeInvalidatePattern(ctx, cm.Reports, "*:"+key+":*")
	}
	for _, key := range nextPeriodKeys {
		SafeDelete(ctx, cm.Reports, ReportKey(KindDashboard, key))
	}
}

// InvalidateAllReports drops every report and the cached reference values
func (cm *CacheManager) InvalidateAllReports(ctx context.Context) {
	SafeInvalidatePattern(ctx, cm.Reports, "*")
	SafeDelete(ctx, cm.Reference, fixedValuesKey)
}

// FixedValuesKey is the reference cache key of the live fixed values row
func FixedValuesKey() string {
	return fixedValuesKey
}
