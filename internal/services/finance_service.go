package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

// ===== RESPONSE DTOs =====

type SlotSource string

const (
	SourceExact     SlotSource = "exact"
	SourceEstimated SlotSource = "estimated"
)

// ClassGroupMetric is one modality in one grid cell
type ClassGroupMetric struct {
	ID              string          `json:"id"`
	Modality        string          `json:"modality"`
	StartTime       string          `json:"startTime"`
	Weekday         string          `json:"weekday"`
	ClassCount      int             `json:"classCount"`
	TotalAttendance int             `json:"totalAttendance"`
	Revenue         decimal.Decimal `json:"revenue"`
	Cost            decimal.Decimal `json:"cost"`
	Result          decimal.Decimal `json:"result"`
	Occupancy       int             `json:"occupancy"`
	Source          SlotSource      `json:"source"`
}

// SlotGrid is keyed by start time, then by weekday name
type SlotGrid map[string]map[string][]ClassGroupMetric

// SlotComputation is the priced figure of one slot group, tagged with how it was obtained
type SlotComputation struct {
	Source     SlotSource
	Financials ClassFinancials
}

type ClassBreakdown struct {
	ClassID    uint            `json:"classId"`
	Date       string          `json:"date"`
	Attendance int             `json:"attendance"`
	Capacity   int             `json:"capacity"`
	Occupancy  int             `json:"occupancy"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Result     decimal.Decimal `json:"result"`
}

// TeacherSlotValue is the typical payout of a teacher for one class of the group
type TeacherSlotValue struct {
	TeacherID  uint            `json:"teacherId"`
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	Rank       string          `json:"rank"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	Multiplier decimal.Decimal `json:"multiplier"`
	ValorTotal decimal.Decimal `json:"valorTotal"`
}

type SlotDetail struct {
	ID                string             `json:"id"`
	StartTime         string             `json:"startTime"`
	Weekday           string             `json:"weekday"`
	Modality          string             `json:"modality"`
	ClassCount        int                `json:"classCount"`
	TotalAttendance   int                `json:"totalAttendance"`
	AverageAttendance int                `json:"averageAttendance"`
	TotalCapacity     int                `json:"totalCapacity"`
	Occupancy         int                `json:"occupancy"`
	Revenue           decimal.Decimal    `json:"revenue"`
	FixedCost         decimal.Decimal    `json:"fixedCost"`
	RoleCost          decimal.Decimal    `json:"roleCost"`
	RankCost          decimal.Decimal    `json:"rankCost"`
	Cost              decimal.Decimal    `json:"cost"`
	Result            decimal.Decimal    `json:"result"`
	Classes           []ClassBreakdown   `json:"classes"`
	Teachers          []TeacherSlotValue `json:"teachers"`
}

type DashboardSnapshot struct {
	TotalClasses     int             `json:"totalClasses"`
	AverageOccupancy int             `json:"averageOccupancy"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	NetResult        decimal.Decimal `json:"netResult"`
}

// DashboardGrowth holds integer percentages versus the previous month
type DashboardGrowth struct {
	TotalClasses     int `json:"totalClasses"`
	AverageOccupancy int `json:"averageOccupancy"`
	TotalRevenue     int `json:"totalRevenue"`
	TotalCost        int `json:"totalCost"`
	NetResult        int `json:"netResult"`
}

type DashboardMetrics struct {
	MesAno string `json:"mesAno"`
	DashboardSnapshot
	Growth   DashboardGrowth   `json:"growth"`
	Previous DashboardSnapshot `json:"previous"`
}

type ProfitLossSummary struct {
	MesAno           string `json:"mesAno"`
	AulasComLucro    int    `json:"aulasComLucro"`
	AulasComPrejuizo int    `json:"aulasComPrejuizo"`
	AulasSemCheckIn  int    `json:"aulasSemCheckIn"`
	TotalAulas       int    `json:"totalAulas"`
}

// ===== SERVICE INTERFACE =====

// FinanceService is the financial aggregation engine behind the reports
type FinanceService interface {
	GetSlotGrid(ctx context.Context, period models.Period) (SlotGrid, error)
	GetSlotDetail(ctx context.Context, period models.Period, key models.SlotKey) (*SlotDetail, error)
	GetDashboardMetrics(ctx context.Context, period models.Period) (*DashboardMetrics, error)
	GetProfitLoss(ctx context.Context, period models.Period) (*ProfitLossSummary, error)
}

// ===== SERVICE IMPLEMENTATION =====

type financeService struct {
	repo   repositories.Repository
	db     *gorm.DB
	cache  *cache.CacheManager
	logger *slog.Logger
}

func NewFinanceService(repo repositories.Repository, db *gorm.DB, cm *cache.CacheManager, logger *slog.Logger) FinanceService {
	if cm == nil {
		cm = cache.NewCacheManager(nil, 0)
	}
	return &financeService{
		repo:   repo,
		db:     db,
		cache:  cm,
		logger: logger,
	}
}

// loadRates returns the live fixed values, or the defaults when none are stored
func (s *financeService) loadRates(ctx context.Context) (Rates, error) {
	return loadRates(ctx, s.repo, s.cache)
}

func loadRates(ctx context.Context, repo repositories.Repository, cm *cache.CacheManager) (Rates, error) {
	var values models.FixedValues
	err := cm.Reference.CacheOrExecute(ctx, cache.FixedValuesKey(), &values, cache.ReferenceCacheConfig.TTL, func() (interface{}, error) {
		stored, err := repo.Reference().GetFixedValues(ctx, nil)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return models.DefaultFixedValues(), nil
			}
			return nil, err
		}
		return stored, nil
	})
	if err != nil {
		return Rates{}, fmt.Errorf("failed to load fixed values: %w", err)
	}
	return ratesFrom(values), nil
}

// ===== SLOT GRID =====

func (s *financeService) GetSlotGrid(ctx context.Context, period models.Period) (SlotGrid, error) {
	s.logger.Info("Building slot grid", "mes_ano", period.String())

	var grid SlotGrid
	err := s.cache.Reports.CacheOrExecute(ctx, cache.ReportKey(cache.KindGrid, period.Key()), &grid, s.cache.ReportTTL(), func() (interface{}, error) {
		return s.buildSlotGrid(ctx, period)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("Failed to build slot grid, returning empty grid", "mes_ano", period.String(), "error", err)
		return SlotGrid{}, nil
	}
	return grid, nil
}

func (s *financeService) buildSlotGrid(ctx context.Context, period models.Period) (SlotGrid, error) {
	rates, err := s.loadRates(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.repo.Finance().ListSlotGroups(ctx, nil, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to list slot groups: %w", err)
	}

	blended := s.blendedRatesOnce(ctx)
	grid := SlotGrid{}

	for _, g := range groups {
		weekday := time.Weekday(g.Weekday)
		if weekday == time.Sunday {
			continue
		}

		key := g.Key()
		comp := s.computeSlot(ctx, period, g, rates, blended)

		groupCapacity := g.Capacity * g.ClassCount
		metric := ClassGroupMetric{
			ID:              key.Encode(),
			Modality:        g.ModalityName,
			StartTime:       g.StartTime,
			Weekday:         models.WeekdayName(weekday),
			ClassCount:      g.ClassCount,
			TotalAttendance: g.TotalAttendance,
			Revenue:         roundMoney(comp.Financials.Revenue),
			Cost:            roundMoney(comp.Financials.Cost),
			Result:          roundMoney(comp.Financials.Result),
			Occupancy:       OccupancyPercent(g.TotalAttendance, groupCapacity),
			Source:          comp.Source,
		}

		row, ok := grid[g.StartTime]
		if !ok {
			row = newGridRow()
			grid[g.StartTime] = row
		}
		row[metric.Weekday] = append(row[metric.Weekday], metric)
	}

	return grid, nil
}

func newGridRow() map[string][]ClassGroupMetric {
	row := make(map[string][]ClassGroupMetric, len(models.GridWeekdays))
	for _, d := range models.GridWeekdays {
		row[models.WeekdayName(d)] = []ClassGroupMetric{}
	}
	return row
}

// computeSlot prices a group from its member classes and falls back to the
// blended estimate for this group only when that lookup fails.
func (s *financeService) computeSlot(ctx context.Context, period models.Period, g repositories.SlotGroupRow, rates Rates, blended func() repositories.BlendedRates) SlotComputation {
	detail, err := s.computeSlotDetail(ctx, period, g.Key(), rates)
	if err == nil {
		return SlotComputation{Source: SourceExact, Financials: detail.totals}
	}

	s.logger.Warn("Exact slot pricing failed, using blended estimate",
		"mes_ano", period.String(),
		"slot", g.Key().Legacy(),
		"error", err)

	return SlotComputation{
		Source:     SourceEstimated,
		Financials: EstimateGroup(rates, blended(), g.ClassCount, g.TotalAttendance),
	}
}

// blendedRatesOnce fetches the blended averages on first use only
func (s *financeService) blendedRatesOnce(ctx context.Context) func() repositories.BlendedRates {
	var (
		loaded bool
		rates  repositories.BlendedRates
	)
	return func() repositories.BlendedRates {
		if loaded {
			return rates
		}
		loaded = true

		r, err := s.repo.Finance().GetBlendedRates(ctx, nil)
		if err != nil {
			s.logger.Error("Failed to load blended rates, estimating with zero rates", "error", err)
			return rates
		}
		rates = r
		return rates
	}
}

// ===== SLOT DETAIL =====

type slotDetailResult struct {
	detail *SlotDetail
	totals ClassFinancials
}

func (s *financeService) GetSlotDetail(ctx context.Context, period models.Period, key models.SlotKey) (*SlotDetail, error) {
	s.logger.Info("Getting slot detail", "mes_ano", period.String(), "slot", key.Legacy())

	var detail SlotDetail
	err := s.cache.Reports.CacheOrExecute(ctx, cache.ReportKey(cache.KindSlotDetail, period.Key(), key.Encode()), &detail, s.cache.ReportTTL(), func() (interface{}, error) {
		rates, err := s.loadRates(ctx)
		if err != nil {
			return nil, err
		}
		res, err := s.computeSlotDetail(ctx, period, key, rates)
		if err != nil {
			return nil, err
		}
		return res.detail, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get slot detail: %w", err)
	}
	return &detail, nil
}

func (s *financeService) computeSlotDetail(ctx context.Context, period models.Period, key models.SlotKey, rates Rates) (*slotDetailResult, error) {
	classes, err := s.repo.Finance().ListSlotClasses(ctx, nil, period.Start(), period.End(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot classes: %w", err)
	}
	if len(classes) == 0 {
		return nil, NewNotFoundError("class group", key.Legacy())
	}

	assignments, err := s.repo.Finance().ListSlotAssignments(ctx, nil, period.Start(), period.End(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot assignments: %w", err)
	}
	byClass := ratesByClass(assignments)

	detail := &SlotDetail{
		ID:         key.Encode(),
		StartTime:  key.StartTime,
		Weekday:    key.WeekdayName(),
		Modality:   key.Modality,
		ClassCount: len(classes),
		Classes:    make([]ClassBreakdown, 0, len(classes)),
		Teachers:   []TeacherSlotValue{},
	}

	var totals ClassFinancials
	for _, c := range classes {
		f := ComputeClass(rates, c.Attendance, byClass[c.ClassID])
		totals = totals.Add(f)

		detail.TotalAttendance += c.Attendance
		detail.TotalCapacity += c.Capacity
		detail.Classes = append(detail.Classes, ClassBreakdown{
			ClassID:    c.ClassID,
			Date:       c.Date.Format(time.DateOnly),
			Attendance: c.Attendance,
			Capacity:   c.Capacity,
			Occupancy:  OccupancyPercent(c.Attendance, c.Capacity),
			Revenue:    roundMoney(f.Revenue),
			Cost:       roundMoney(f.Cost),
			Result:     roundMoney(f.Result),
		})
	}

	detail.AverageAttendance = averageRounded(detail.TotalAttendance, detail.ClassCount)
	detail.Occupancy = OccupancyPercent(detail.TotalAttendance, detail.TotalCapacity)
	detail.Revenue = roundMoney(totals.Revenue)
	detail.FixedCost = roundMoney(totals.FixedCost)
	detail.RoleCost = roundMoney(totals.RoleCost)
	detail.RankCost = roundMoney(totals.RankCost)
	detail.Cost = roundMoney(totals.Cost)
	detail.Result = roundMoney(totals.Result)
	detail.Teachers = teacherSlotValues(assignments, detail.AverageAttendance)

	return &slotDetailResult{detail: detail, totals: totals}, nil
}

// teacherSlotValues lists each distinct (teacher, role, rank) of the group with
// hourlyRate + averageAttendance * multiplier. This is a display figure only;
// payroll is computed per assignment.
func teacherSlotValues(rows []repositories.AssignmentRow, averageAttendance int) []TeacherSlotValue {
	type tuple struct{ teacher, role, rank uint }

	avg := decimal.NewFromInt(int64(averageAttendance))
	seen := make(map[tuple]bool)
	out := []TeacherSlotValue{}

	for _, r := range rows {
		k := tuple{r.TeacherID, r.RoleID, r.RankID}
		if seen[k] {
			continue
		}
		seen[k] = true

		out = append(out, TeacherSlotValue{
			TeacherID:  r.TeacherID,
			Name:       r.TeacherName,
			Role:       r.RoleName,
			Rank:       r.RankName,
			HourlyRate: roundMoney(r.HourlyRate),
			Multiplier: roundMoney(r.Multiplier),
			ValorTotal: roundMoney(r.HourlyRate.Add(avg.Mul(r.Multiplier))),
		})
	}
	return out
}

// ===== DASHBOARD =====

func (s *financeService) GetDashboardMetrics(ctx context.Context, period models.Period) (*DashboardMetrics, error) {
	s.logger.Info("Getting dashboard metrics", "mes_ano", period.String())

	var metrics DashboardMetrics
	err := s.cache.Reports.CacheOrExecute(ctx, cache.ReportKey(cache.KindDashboard, period.Key()), &metrics, s.cache.ReportTTL(), func() (interface{}, error) {
		return s.buildDashboard(ctx, period)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("Failed to build dashboard, returning zeroed metrics", "mes_ano", period.String(), "error", err)
		return emptyDashboard(period), nil
	}
	return &metrics, nil
}

func emptyDashboard(period models.Period) *DashboardMetrics {
	return &DashboardMetrics{
		MesAno:            period.String(),
		DashboardSnapshot: zeroSnapshot(),
		Previous:          zeroSnapshot(),
	}
}

func zeroSnapshot() DashboardSnapshot {
	return DashboardSnapshot{
		TotalRevenue: decimal.Zero,
		TotalCost:    decimal.Zero,
		NetResult:    decimal.Zero,
	}
}

func (s *financeService) buildDashboard(ctx context.Context, period models.Period) (*DashboardMetrics, error) {
	rates, err := s.loadRates(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.monthSnapshot(ctx, period, rates)
	if err != nil {
		return nil, err
	}

	metrics := &DashboardMetrics{
		MesAno:            period.String(),
		DashboardSnapshot: current,
		Previous:          zeroSnapshot(),
	}

	previous, err := s.monthSnapshot(ctx, period.Previous(), rates)
	if err != nil {
		s.logger.Warn("Failed to compute previous month, growth left at zero",
			"mes_ano", period.Previous().String(),
			"error", err)
		return metrics, nil
	}

	metrics.Previous = previous
	metrics.Growth = computeGrowth(current, previous)
	return metrics, nil
}

// monthSnapshot sums every class of the period with its own assignments
func (s *financeService) monthSnapshot(ctx context.Context, period models.Period, rates Rates) (DashboardSnapshot, error) {
	classes, err := s.repo.Finance().ListClasses(ctx, nil, period.Start(), period.End())
	if err != nil {
		return DashboardSnapshot{}, fmt.Errorf("failed to list classes: %w", err)
	}
	assignments, err := s.repo.Finance().ListAssignments(ctx, nil, period.Start(), period.End())
	if err != nil {
		return DashboardSnapshot{}, fmt.Errorf("failed to list assignments: %w", err)
	}

	return summarizeMonth(classes, ratesByClass(assignments), rates), nil
}

func summarizeMonth(classes []repositories.ClassRow, byClass map[uint][]AssignmentRate, rates Rates) DashboardSnapshot {
	var totals ClassFinancials
	occupancySum := decimal.Zero

	for _, c := range classes {
		totals = totals.Add(ComputeClass(rates, c.Attendance, byClass[c.ClassID]))
		occupancySum = occupancySum.Add(occupancyRatio(c.Attendance, c.Capacity))
	}

	snapshot := DashboardSnapshot{
		TotalClasses: len(classes),
		TotalRevenue: roundMoney(totals.Revenue),
		TotalCost:    roundMoney(totals.Cost),
		NetResult:    roundMoney(totals.Result),
	}
	if len(classes) > 0 {
		snapshot.AverageOccupancy = roundInt(occupancySum.Div(decimal.NewFromInt(int64(len(classes)))))
	}
	return snapshot
}

func computeGrowth(current, previous DashboardSnapshot) DashboardGrowth {
	return DashboardGrowth{
		TotalClasses: GrowthPercent(
			decimal.NewFromInt(int64(current.TotalClasses)),
			decimal.NewFromInt(int64(previous.TotalClasses)),
			guardPreviousAsOne),
		AverageOccupancy: GrowthPercent(
			decimal.NewFromInt(int64(current.AverageOccupancy)),
			decimal.NewFromInt(int64(previous.AverageOccupancy)),
			guardPreviousAsOne),
		TotalRevenue: GrowthPercent(current.TotalRevenue, previous.TotalRevenue, guardStep),
		TotalCost:    GrowthPercent(current.TotalCost, previous.TotalCost, guardStep),
		NetResult:    GrowthPercent(current.NetResult, previous.NetResult, guardStep),
	}
}

// ===== PROFIT / LOSS =====

func (s *financeService) GetProfitLoss(ctx context.Context, period models.Period) (*ProfitLossSummary, error) {
	s.logger.Info("Getting profit/loss classification", "mes_ano", period.String())

	var summary ProfitLossSummary
	err := s.cache.Reports.CacheOrExecute(ctx, cache.ReportKey(cache.KindProfitLoss, period.Key()), &summary, s.cache.ReportTTL(), func() (interface{}, error) {
		return s.buildProfitLoss(ctx, period)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("Failed to classify classes, returning zeroed summary", "mes_ano", period.String(), "error", err)
		return &ProfitLossSummary{MesAno: period.String()}, nil
	}
	return &summary, nil
}

func (s *financeService) buildProfitLoss(ctx context.Context, period models.Period) (*ProfitLossSummary, error) {
	rates, err := s.loadRates(ctx)
	if err != nil {
		return nil, err
	}

	classes, err := s.repo.Finance().ListClasses(ctx, nil, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	assignments, err := s.repo.Finance().ListAssignments(ctx, nil, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	summary := classifyClasses(classes, ratesByClass(assignments), rates)
	summary.MesAno = period.String()
	return summary, nil
}

// classifyClasses counts profitable and lossy classes among those with check-in
func classifyClasses(classes []repositories.ClassRow, byClass map[uint][]AssignmentRate, rates Rates) *ProfitLossSummary {
	summary := &ProfitLossSummary{TotalAulas: len(classes)}

	checkedIn := 0
	for _, c := range classes {
		if c.Attendance <= 0 {
			continue
		}
		checkedIn++

		if ComputeClass(rates, c.Attendance, byClass[c.ClassID]).Result.IsNegative() {
			summary.AulasComPrejuizo++
		} else {
			summary.AulasComLucro++
		}
	}

	summary.AulasSemCheckIn = summary.TotalAulas - checkedIn
	return summary
}
