package services

import (
	"github.com/shopspring/decimal"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

var hundred = decimal.NewFromInt(100)

// Rates are the live global constants of every financial formula
type Rates struct {
	RevenuePerStudent decimal.Decimal
	FixedCostPerClass decimal.Decimal
}

func ratesFrom(values models.FixedValues) Rates {
	return Rates{
		RevenuePerStudent: values.RevenuePerStudent,
		FixedCostPerClass: values.FixedCostPerClass,
	}
}

func DefaultRates() Rates {
	return ratesFrom(models.DefaultFixedValues())
}

// AssignmentRate prices one teacher on one class
type AssignmentRate struct {
	HourlyRate decimal.Decimal
	Multiplier decimal.Decimal
}

// ClassFinancials holds revenue and cost of one class or of a sum of classes
type ClassFinancials struct {
	Revenue   decimal.Decimal
	FixedCost decimal.Decimal
	RoleCost  decimal.Decimal
	RankCost  decimal.Decimal
	Cost      decimal.Decimal
	Result    decimal.Decimal
}

// ComputeClass applies the per-class formula with the class's own assignments:
//
//	revenue = attendance * revenuePerStudent
//	cost    = fixedCostPerClass + sum(hourlyRate) + attendance * sum(multiplier)
//	result  = revenue - cost
func ComputeClass(rates Rates, attendance int, assignments []AssignmentRate) ClassFinancials {
	if attendance < 0 {
		attendance = 0
	}
	att := decimal.NewFromInt(int64(attendance))

	roleCost := decimal.Zero
	multipliers := decimal.Zero
	for _, a := range assignments {
		roleCost = roleCost.Add(a.HourlyRate)
		multipliers = multipliers.Add(a.Multiplier)
	}

	f := ClassFinancials{
		Revenue:   att.Mul(rates.RevenuePerStudent),
		FixedCost: rates.FixedCostPerClass,
		RoleCost:  roleCost,
		RankCost:  att.Mul(multipliers),
	}
	f.Cost = f.FixedCost.Add(f.RoleCost).Add(f.RankCost)
	f.Result = f.Revenue.Sub(f.Cost)
	return f
}

// Add sums two figures component-wise. Groups are priced by summing revenue
// and cost first and subtracting once.
func (f ClassFinancials) Add(o ClassFinancials) ClassFinancials {
	sum := ClassFinancials{
		Revenue:   f.Revenue.Add(o.Revenue),
		FixedCost: f.FixedCost.Add(o.FixedCost),
		RoleCost:  f.RoleCost.Add(o.RoleCost),
		RankCost:  f.RankCost.Add(o.RankCost),
	}
	sum.Cost = sum.FixedCost.Add(sum.RoleCost).Add(sum.RankCost)
	sum.Result = sum.Revenue.Sub(sum.Cost)
	return sum
}

// EstimateGroup prices a slot group from blended reference averages:
//
//	cost = classCount * (fixedCostPerClass + averageHourlyRate) + totalAttendance * averageMultiplier
func EstimateGroup(rates Rates, blended repositories.BlendedRates, classCount, totalAttendance int) ClassFinancials {
	count := decimal.NewFromInt(int64(classCount))
	att := decimal.NewFromInt(int64(totalAttendance))

	f := ClassFinancials{
		Revenue:   att.Mul(rates.RevenuePerStudent),
		FixedCost: count.Mul(rates.FixedCostPerClass),
		RoleCost:  count.Mul(blended.AverageHourlyRate),
		RankCost:  att.Mul(blended.AverageMultiplier),
	}
	f.Cost = f.FixedCost.Add(f.RoleCost).Add(f.RankCost)
	f.Result = f.Revenue.Sub(f.Cost)
	return f
}

// occupancyRatio is attendance/capacity as a percentage clamped to [0, 100]
func occupancyRatio(attendance, capacity int) decimal.Decimal {
	if capacity <= 0 || attendance <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(attendance)).Mul(hundred).Div(decimal.NewFromInt(int64(capacity)))
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// OccupancyPercent rounds occupancyRatio half away from zero
func OccupancyPercent(attendance, capacity int) int {
	return roundInt(occupancyRatio(attendance, capacity))
}

type growthGuard int

const (
	// guardPreviousAsOne divides by 1 when the previous value is 0 (counts, occupancy)
	guardPreviousAsOne growthGuard = iota
	// guardStep yields 100 when the previous value is 0 and current is positive, else 0 (money)
	guardStep
)

// GrowthPercent is round((current - previous) / previous * 100) with a
// deterministic fallback when previous is 0. Only the divisor is replaced,
// so two empty periods compare as 0.
func GrowthPercent(current, previous decimal.Decimal, guard growthGuard) int {
	divisor := previous
	if previous.IsZero() {
		if guard != guardPreviousAsOne {
			if current.IsPositive() {
				return 100
			}
			return 0
		}
		divisor = decimal.NewFromInt(1)
	}
	return roundInt(current.Sub(previous).Div(divisor).Mul(hundred))
}

func roundInt(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}

// roundMoney rounds to cents for responses
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// averageRounded is round(total / count), 0 when count is 0
func averageRounded(total, count int) int {
	if count <= 0 {
		return 0
	}
	return roundInt(decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(count))))
}

// ratesByClass groups assignment pricing by class id
func ratesByClass(rows []repositories.AssignmentRow) map[uint][]AssignmentRate {
	out := make(map[uint][]AssignmentRate)
	for _, r := range rows {
		out[r.ClassID] = append(out[r.ClassID], AssignmentRate{HourlyRate: r.HourlyRate, Multiplier: r.Multiplier})
	}
	return out
}
