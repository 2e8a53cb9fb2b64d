package services

import "github.com/studioflow/class-payroll-service/internal/models"

// Actor is the authenticated caller of a service operation
type Actor struct {
	TeacherID uint
	Role      models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// canRead reports whether the actor may read data owned by teacherID
func (a Actor) canRead(teacherID uint) bool {
	return a.IsAdmin() || a.TeacherID == teacherID
}
