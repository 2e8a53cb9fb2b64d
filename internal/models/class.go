package models

import (
	"time"

	"gorm.io/datatypes"
)

// ClassSession ("aula") is one scheduled occurrence of a modality
type ClassSession struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Date       datatypes.Date `json:"date" gorm:"not null;uniqueIndex:idx_aula_slot,priority:1"`
	StartTime  string         `json:"startTime" gorm:"not null;size:5;uniqueIndex:idx_aula_slot,priority:2"`
	Capacity   int            `json:"capacity" gorm:"not null"`
	Attendance int            `json:"attendance" gorm:"not null;default:0"`
	ModalityID uint           `json:"modalityId" gorm:"not null;index;uniqueIndex:idx_aula_slot,priority:3"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Modality    Modality          `json:"modality" gorm:"foreignKey:ModalityID;constraint:OnDelete:RESTRICT"`
	Assignments []ClassAssignment `json:"assignments,omitempty" gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE"`
}

func (ClassSession) TableName() string {
	return "aulas"
}

func (c *ClassSession) Day() time.Time {
	return time.Time(c.Date)
}

// ClassAssignment ("aula_professor") binds one teacher to one class under a role and a rank
type ClassAssignment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	ClassID   uint `json:"classId" gorm:"not null;uniqueIndex:idx_aula_professor,priority:1"`
	TeacherID uint `json:"teacherId" gorm:"not null;index;uniqueIndex:idx_aula_professor,priority:2"`
	RoleID    uint `json:"roleId" gorm:"not null;index"`
	RankID    uint `json:"rankId" gorm:"not null;index"`

	Teacher Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE"`
	Role    Role    `json:"role,omitempty" gorm:"foreignKey:RoleID;constraint:OnDelete:RESTRICT"`
	Rank    Rank    `json:"rank,omitempty" gorm:"foreignKey:RankID;constraint:OnDelete:RESTRICT"`
}

func (ClassAssignment) TableName() string {
	return "aula_professores"
}
