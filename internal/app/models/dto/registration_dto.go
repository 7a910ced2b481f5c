package dto

import (
	"time"

	"github.com/yigit/studentportal/internal/app/models"
)

// RegisterCoursesRequest submits a course selection for a term
type RegisterCoursesRequest struct {
	Program     int64   `json:"program" validate:"required,gt=0" example:"3"`
	Level       int     `json:"level" validate:"required,level" example:"200"`
	Semester    string  `json:"semester" validate:"required,semester" example:"First Semester"`
	CourseIDs   []int64 `json:"courseIds" validate:"required,min=1,dive,gt=0"`
	DocumentIDs []int64 `json:"documentIds" validate:"omitempty,dive,gt=0"`
}

// RegistrationResponse is a registration with its derived status
type RegistrationResponse struct {
	ID          int64                     `json:"id"`
	StudentID   int64                     `json:"studentId"`
	Program     int64                     `json:"program"`
	Level       int                       `json:"level"`
	Semester    models.Semester           `json:"semester"`
	CourseIDs   []int64                   `json:"courseIds"`
	DocumentIDs []int64                   `json:"documentIds"`
	Status      models.RegistrationStatus `json:"status"`
	SubmittedAt time.Time                 `json:"submittedAt"`
	GraceEndsAt time.Time                 `json:"graceEndsAt"`
}

// NewRegistrationResponse renders r with the status it has at now.
func NewRegistrationResponse(r *models.CourseRegistration, status models.RegistrationStatus) RegistrationResponse {
	docs := r.DocumentIDs
	if docs == nil {
		docs = []int64{}
	}
	return RegistrationResponse{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Program:     r.ProgramID,
		Level:       r.Level,
		Semester:    r.Semester,
		CourseIDs:   r.CourseIDs,
		DocumentIDs: docs,
		Status:      status,
		SubmittedAt: r.SubmittedAt,
		GraceEndsAt: r.GraceEndsAt,
	}
}
