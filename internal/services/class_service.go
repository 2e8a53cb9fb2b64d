package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/events"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

// SeriesOptions controls batched recurring creation
type SeriesOptions struct {
	BatchSize  int
	BatchPause time.Duration
}

type classService struct {
	repo      repositories.Repository
	db        *gorm.DB
	publisher events.EventPublisher
	validator *validator.Validator
	series    SeriesOptions
	logger    *slog.Logger
}

func NewClassService(repo repositories.Repository, db *gorm.DB, publisher events.EventPublisher, validator *validator.Validator, series SeriesOptions, logger *slog.Logger) ClassService {
	if series.BatchSize < 1 {
		series.BatchSize = 10
	}
	return &classService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		validator: validator,
		series:    series,
		logger:    logger,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *classService) Create(ctx context.Context, req *CreateClassRequest) (*models.ClassSession, error) {
	s.logger.Info("Creating class", "date", req.Date, "start_time", req.StartTime, "modality_id", req.ModalityID)

	if errs := s.validator.GetBusinessValidator().ValidateAssignments(req.Assignments); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkReferences(ctx, req.ModalityID, req.Assignments); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("date", "must be YYYY-MM-DD", req.Date)}
	}

	class := &models.ClassSession{
		Date:        datatypes.Date(date),
		StartTime:   req.StartTime,
		Capacity:    req.Capacity,
		ModalityID:  req.ModalityID,
		Assignments: toAssignments(req.Assignments),
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Class().Create(ctx, nil, class)
	})
	if err != nil {
		return nil, mapRepoError("class", req.Date+" "+req.StartTime, err)
	}

	s.logger.Info("Class created successfully", "class_id", class.ID)
	s.publishLedger(ctx, "created", []uint{class.ID}, models.PeriodOf(date))

	return s.Get(ctx, class.ID)
}

func (s *classService) Get(ctx context.Context, id uint) (*models.ClassSession, error) {
	class, err := s.repo.Class().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepoError("class", id, err)
	}
	return class, nil
}

func (s *classService) ListByPeriod(ctx context.Context, period models.Period) ([]models.ClassSession, error) {
	classes, err := s.repo.Class().List(ctx, nil, repositories.ClassFilters{
		From: period.Start(),
		To:   period.End(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

// Update replaces the class fields and its assignment set in one transaction
func (s *classService) Update(ctx context.Context, id uint, req *UpdateClassRequest) (*models.ClassSession, error) {
	s.logger.Info("Updating class", "class_id", id)

	if errs := s.validator.GetBusinessValidator().ValidateAssignments(req.Assignments); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkReferences(ctx, req.ModalityID, req.Assignments); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("date", "must be YYYY-MM-DD", req.Date)}
	}

	var previous models.Period
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Class().GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		previous = models.PeriodOf(existing.Day())

		if errs := s.validator.GetBusinessValidator().ValidateCapacityChange(req.Capacity, existing.Attendance); len(errs) > 0 {
			return errs
		}

		existing.Date = datatypes.Date(date)
		existing.StartTime = req.StartTime
		existing.Capacity = req.Capacity
		existing.ModalityID = req.ModalityID

		if err := tx.Class().Update(ctx, nil, existing); err != nil {
			return err
		}
		return tx.Class().ReplaceAssignments(ctx, nil, id, toAssignments(req.Assignments))
	})
	if err != nil {
		return nil, mapRepoError("class", id, err)
	}

	s.logger.Info("Class updated successfully", "class_id", id)
	s.publishLedger(ctx, "updated", []uint{id}, previous, models.PeriodOf(date))

	return s.Get(ctx, id)
}

func (s *classService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting class", "class_id", id)

	var period models.Period
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Class().GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		period = models.PeriodOf(existing.Day())
		return tx.Class().Delete(ctx, nil, id)
	})
	if err != nil {
		return mapRepoError("class", id, err)
	}

	s.logger.Info("Class deleted successfully", "class_id", id)
	s.publishLedger(ctx, "deleted", []uint{id}, period)
	return nil
}

// ===== CHECK-IN =====

// CheckIn records attendance. Read-then-write without row locking; two
// concurrent check-ins on one class may overwrite each other.
func (s *classService) CheckIn(ctx context.Context, actor Actor, classID uint, attendance int) (*models.ClassSession, error) {
	s.logger.Info("Recording check-in", "class_id", classID, "attendance", attendance, "actor_id", actor.TeacherID)

	class, err := s.repo.Class().GetByID(ctx, nil, classID)
	if err != nil {
		return nil, mapRepoError("class", classID, err)
	}

	if !actor.IsAdmin() {
		assigned, err := s.repo.Class().IsAssigned(ctx, nil, classID, actor.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("failed to check assignment: %w", err)
		}
		if !assigned {
			return nil, fmt.Errorf("teacher %d is not assigned to class %d: %w", actor.TeacherID, classID, ErrForbidden)
		}
	}

	if errs := s.validator.GetBusinessValidator().ValidateCheckIn(attendance, class.Capacity); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Class().UpdateAttendance(ctx, nil, classID, attendance); err != nil {
		return nil, mapRepoError("class", classID, err)
	}
	class.Attendance = attendance

	s.publishLedger(ctx, "checked_in", []uint{classID}, models.PeriodOf(class.Day()))
	return class, nil
}

// ===== RECURRING SERIES =====

// CreateSeries creates one class per matching weekday in the range, in batches.
// Individual date failures are collected; it errors only when nothing was created.
func (s *classService) CreateSeries(ctx context.Context, req *CreateSeriesRequest) (*SeriesResult, error) {
	s.logger.Info("Creating class series",
		"start_date", req.StartDate,
		"end_date", req.EndDate,
		"start_time", req.StartTime,
		"modality_id", req.ModalityID)

	if errs := s.validator.GetBusinessValidator().ValidateSeries(req); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkReferences(ctx, req.ModalityID, req.Assignments); err != nil {
		return nil, err
	}

	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)
	dates := seriesDates(start, end, req.Weekdays)

	result := &SeriesResult{ClassIDs: []uint{}, Failed: []SeriesFailure{}}
	touched := make(map[models.Period]bool)

	for i := 0; i < len(dates); i += s.series.BatchSize {
		if i > 0 && s.series.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return s.finishSeries(ctx, result, touched, dates[i:], ctx.Err())
			case <-time.After(s.series.BatchPause):
			}
		}

		batchEnd := min(i+s.series.BatchSize, len(dates))
		for _, date := range dates[i:batchEnd] {
			class := &models.ClassSession{
				Date:        datatypes.Date(date),
				StartTime:   req.StartTime,
				Capacity:    req.Capacity,
				ModalityID:  req.ModalityID,
				Assignments: toAssignments(req.Assignments),
			}

			err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
				return tx.Class().Create(ctx, nil, class)
			})
			if err != nil {
				s.logger.Warn("Series date skipped", "date", date.Format(time.DateOnly), "error", err)
				result.Failed = append(result.Failed, SeriesFailure{
					Date:   date.Format(time.DateOnly),
					Reason: seriesFailureReason(err),
				})
				continue
			}

			result.Created++
			result.ClassIDs = append(result.ClassIDs, class.ID)
			touched[models.PeriodOf(date)] = true
		}
	}

	return s.finishSeries(ctx, result, touched, nil, nil)
}

func (s *classService) finishSeries(ctx context.Context, result *SeriesResult, touched map[models.Period]bool, pending []time.Time, cause error) (*SeriesResult, error) {
	for _, date := range pending {
		result.Failed = append(result.Failed, SeriesFailure{
			Date:   date.Format(time.DateOnly),
			Reason: "not attempted: request cancelled",
		})
	}

	if result.Created > 0 {
		periods := make([]models.Period, 0, len(touched))
		for p := range touched {
			periods = append(periods, p)
		}
		s.publishLedger(context.WithoutCancel(ctx), "created", result.ClassIDs, periods...)
	}

	if len(result.Failed) > 0 {
		if result.Created == 0 {
			if cause != nil {
				return nil, cause
			}
			return nil, fmt.Errorf("no class of the series could be created (%d failed): %w", len(result.Failed), ErrConflict)
		}
		result.Warning = fmt.Sprintf("%d of %d classes created; %d dates failed",
			result.Created, result.Created+len(result.Failed), len(result.Failed))
	}

	s.logger.Info("Class series finished",
		"created", result.Created,
		"failed", len(result.Failed))
	return result, nil
}

// seriesDates lists every date in [start, end] whose weekday is selected
func seriesDates(start, end time.Time, weekdays []int) []time.Time {
	selected := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		selected[time.Weekday(d)] = true
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if selected[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	return dates
}

func seriesFailureReason(err error) string {
	switch {
	case repositories.IsDuplicateError(err):
		return "a class already exists at this date, time and modality"
	case errors.Is(err, repositories.ErrInUse):
		return "referenced data no longer exists"
	default:
		return "could not be created"
	}
}

// ===== HELPERS =====

func toAssignments(reqs []AssignmentRequest) []models.ClassAssignment {
	out := make([]models.ClassAssignment, len(reqs))
	for i, a := range reqs {
		out[i] = models.ClassAssignment{
			TeacherID: a.TeacherID,
			RoleID:    a.RoleID,
			RankID:    a.RankID,
		}
	}
	return out
}

// checkReferences verifies the modality and every teacher, role and rank exist
func (s *classService) checkReferences(ctx context.Context, modalityID uint, assignments []AssignmentRequest) error {
	var errs ValidationErrors

	check := func(field string, id uint, err error) error {
		if err == nil {
			return nil
		}
		if repositories.IsNotFoundError(err) {
			errs = append(errs, *NewValidationError(field, "does not exist", id))
			return nil
		}
		return fmt.Errorf("failed to check %s: %w", field, err)
	}

	_, err := s.repo.Reference().GetModality(ctx, nil, modalityID)
	if err := check("modalityId", modalityID, err); err != nil {
		return err
	}

	for i, a := range assignments {
		_, err := s.repo.Teacher().GetByID(ctx, nil, a.TeacherID)
		if err := check(fmt.Sprintf("assignments[%d].teacherId", i), a.TeacherID, err); err != nil {
			return err
		}
		_, err = s.repo.Reference().GetRole(ctx, nil, a.RoleID)
		if err := check(fmt.Sprintf("assignments[%d].roleId", i), a.RoleID, err); err != nil {
			return err
		}
		_, err = s.repo.Reference().GetRank(ctx, nil, a.RankID)
		if err := check(fmt.Sprintf("assignments[%d].rankId", i), a.RankID, err); err != nil {
			return err
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// publishLedger announces a ledger write; failures are logged, the write already happened
func (s *classService) publishLedger(ctx context.Context, action string, classIDs []uint, periods ...models.Period) {
	if s.publisher == nil {
		return
	}

	seen := make(map[string]bool, len(periods))
	keys := make([]string, 0, len(periods))
	for _, p := range periods {
		if k := p.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	event := events.LedgerChanged{Action: action, ClassIDs: classIDs, Periods: keys}
	if err := s.publisher.PublishLedgerChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish ledger event", "action", action, "error", err)
	}
}
