package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxSeriesSpan bounds how far a recurring series may reach
const MaxSeriesSpan = 366 * 24 * time.Hour

// BusinessValidator checks rules that span several fields or need stored state
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// ValidateAssignments rejects a teacher listed twice on the same class
func (bv *BusinessValidator) ValidateAssignments(assignments []AssignmentRequest) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[uint]bool, len(assignments))
	for i, a := range assignments {
		if seen[a.TeacherID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("assignments[%d].teacherId", i),
				Message: "teacher is already assigned to this class",
				Value:   a.TeacherID,
				Rule:    "unique_teacher",
			})
		}
		seen[a.TeacherID] = true
	}

	return errors
}

// ValidateSeries checks the date window of a recurring series
func (bv *BusinessValidator) ValidateSeries(req *ClassSeriesRequest) ValidationErrors {
	var errors ValidationErrors

	start, errStart := time.Parse(time.DateOnly, req.StartDate)
	end, errEnd := time.Parse(time.DateOnly, req.EndDate)
	if errStart != nil || errEnd != nil {
		return ValidationErrors{{
			Field:   "startDate",
			Message: "invalid date range",
			Rule:    "date_range",
		}}
	}

	if end.Before(start) {
		errors = append(errors, ValidationError{
			Field:   "endDate",
			Message: "must not be before startDate",
			Value:   req.EndDate,
			Rule:    "date_range",
		})
	}
	if end.Sub(start) > MaxSeriesSpan {
		errors = append(errors, ValidationError{
			Field:   "endDate",
			Message: "series cannot span more than one year",
			Value:   req.EndDate,
			Rule:    "date_range",
		})
	}

	errors = append(errors, bv.ValidateAssignments(req.Assignments)...)

	return errors
}

// ValidateCheckIn enforces attendance <= capacity at write time
func (bv *BusinessValidator) ValidateCheckIn(attendance, capacity int) ValidationErrors {
	var errors ValidationErrors

	if attendance < 0 {
		errors = append(errors, ValidationError{
			Field:   "attendance",
			Message: "cannot be negative",
			Value:   attendance,
			Rule:    "min",
		})
	}
	if attendance > capacity {
		errors = append(errors, ValidationError{
			Field:   "attendance",
			Message: fmt.Sprintf("cannot exceed class capacity of %d", capacity),
			Value:   attendance,
			Rule:    "capacity",
		})
	}

	return errors
}

// ValidateCapacityChange keeps already recorded attendance within a new capacity
func (bv *BusinessValidator) ValidateCapacityChange(capacity, recordedAttendance int) ValidationErrors {
	if recordedAttendance > capacity {
		return ValidationErrors{{
			Field:   "capacity",
			Message: fmt.Sprintf("cannot be lower than the recorded attendance of %d", recordedAttendance),
			Value:   capacity,
			Rule:    "capacity",
		}}
	}
	return nil
}
