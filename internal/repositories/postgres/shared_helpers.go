package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/repositories"
)

// translateError maps gorm and driver errors onto repository sentinels
func translateError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, repositories.ErrInUse)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// requireRows turns a zero-row write into ErrNotFound
func requireRows(op string, result *gorm.DB) error {
	if result.Error != nil {
		return translateError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	return nil
}

// dateWindow restricts a query on aulas aliased as a to from <= date < to
func dateWindow(query *gorm.DB, from, to time.Time) *gorm.DB {
	return query.Where("a.date >= ? AND a.date < ?", from.Format(time.DateOnly), to.Format(time.DateOnly))
}
