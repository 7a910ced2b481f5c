package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/app/repositories"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/validation"
)

// DefaultGracePeriod is how long a submitted registration stays editable
const DefaultGracePeriod = 7 * 24 * time.Hour

// RegistrationService records course selections for a term
type RegistrationService struct {
	registrationRepo registrationStore
	courseRepo       courseStore
	uploadRepo       uploadStore
	gracePeriod      time.Duration
	now              func() time.Time
	logger           zerolog.Logger
}

func NewRegistrationService(
	registrationRepo registrationStore,
	courseRepo courseStore,
	uploadRepo uploadStore,
	gracePeriod time.Duration,
	logger zerolog.Logger,
) *RegistrationService {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &RegistrationService{
		registrationRepo: registrationRepo,
		courseRepo:       courseRepo,
		uploadRepo:       uploadRepo,
		gracePeriod:      gracePeriod,
		now:              time.Now,
		logger:           logger,
	}
}

// Register submits the student's courses for a term. created is false when an
// existing registration inside its grace period had its documents replaced.
func (s *RegistrationService) Register(ctx context.Context, studentID int64, req *dto.RegisterCoursesRequest) (resp *dto.RegistrationResponse, created bool, err error) {
	if err := validation.Struct(req); err != nil {
		return nil, false, err
	}

	semester := models.Semester(req.Semester)
	courseIDs := models.NormalizeIDs(req.CourseIDs)
	documentIDs := models.NormalizeIDs(req.DocumentIDs)

	if err := s.checkOffered(ctx, req.Program, req.Level, semester, courseIDs); err != nil {
		return nil, false, err
	}
	if err := s.checkDocuments(ctx, studentID, documentIDs); err != nil {
		return nil, false, err
	}

	existing, err := s.registrationRepo.FindByTerm(ctx, studentID, req.Program, req.Level, semester)
	switch {
	case err == nil:
		return s.resubmit(ctx, existing, courseIDs, documentIDs)
	case !errors.Is(err, apperrors.ErrRegistrationNotFound):
		return nil, false, err
	}

	now := s.now()
	reg := &models.CourseRegistration{
		StudentID:   studentID,
		ProgramID:   req.Program,
		Level:       req.Level,
		Semester:    semester,
		CourseIDs:   courseIDs,
		DocumentIDs: documentIDs,
		SubmittedAt: now,
		GraceEndsAt: now.Add(s.gracePeriod),
	}
	err = s.registrationRepo.Create(ctx, reg)
	if errors.Is(err, repositories.ErrRegistrationExists) {
		// lost a race with a concurrent submit for the same term
		existing, err = s.registrationRepo.FindByTerm(ctx, studentID, req.Program, req.Level, semester)
		if err != nil {
			return nil, false, err
		}
		return s.resubmit(ctx, existing, courseIDs, documentIDs)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info().
		Int64("studentID", studentID).
		Int64("registrationID", reg.ID).
		Int("courses", len(courseIDs)).
		Msg("Course registration submitted")
	out := dto.NewRegistrationResponse(reg, models.RegistrationSubmitted)
	return &out, true, nil
}

func (s *RegistrationService) resubmit(ctx context.Context, existing *models.CourseRegistration, courseIDs, documentIDs []int64) (*dto.RegistrationResponse, bool, error) {
	now := s.now()
	if !existing.InGracePeriod(now) {
		return nil, false, apperrors.NewConflictError("registration for this term is finalized and can no longer be changed")
	}
	if !existing.SameCourses(courseIDs) {
		return nil, false, apperrors.NewConflictError("course selection cannot change after submission").WithField("courseIds")
	}

	if err := s.registrationRepo.ReplaceDocuments(ctx, existing, documentIDs); err != nil {
		return nil, false, err
	}
	s.logger.Info().
		Int64("studentID", existing.StudentID).
		Int64("registrationID", existing.ID).
		Msg("Registration documents replaced")
	out := dto.NewRegistrationResponse(existing, existing.Status(now))
	return &out, false, nil
}

func (s *RegistrationService) checkOffered(ctx context.Context, programID int64, level int, semester models.Semester, courseIDs []int64) error {
	offered, err := s.courseRepo.FindOffered(ctx, programID, level, semester)
	if err != nil {
		return err
	}
	available := make(map[int64]struct{}, len(offered))
	for _, c := range offered {
		available[c.ID] = struct{}{}
	}
	for _, id := range courseIDs {
		if _, ok := available[id]; !ok {
			return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound,
				fmt.Sprintf("course %d is not offered for level %d, %s", id, level, semester)).WithField("courseIds")
		}
	}
	return nil
}

func (s *RegistrationService) checkDocuments(ctx context.Context, studentID int64, documentIDs []int64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	owned, err := s.uploadRepo.CountOwned(ctx, studentID, documentIDs)
	if err != nil {
		return err
	}
	if owned != len(documentIDs) {
		return apperrors.NewNotFoundError(apperrors.ErrUploadNotFound, "one or more documents were not found").WithField("documentIds")
	}
	return nil
}

// GetMyRegistrations lists the student's registrations, newest first
func (s *RegistrationService) GetMyRegistrations(ctx context.Context, studentID int64) ([]dto.RegistrationResponse, error) {
	regs, err := s.registrationRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]dto.RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		out = append(out, dto.NewRegistrationResponse(r, r.Status(now)))
	}
	return out, nil
}

// GetRegistration returns one registration to its owner or an admin
func (s *RegistrationService) GetRegistration(ctx context.Context, actor auth.Actor, id int64) (*dto.RegistrationResponse, error) {
	reg, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessOwned(actor, reg.StudentID) {
		return nil, apperrors.NewForbiddenError("you can only view your own registrations")
	}
	out := dto.NewRegistrationResponse(reg, reg.Status(s.now()))
	return &out, nil
}
