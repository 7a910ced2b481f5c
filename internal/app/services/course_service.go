package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/validation"
)

// CourseService resolves course availability and manages the catalog
type CourseService struct {
	courseRepo  courseStore
	programRepo programStore
	logger      zerolog.Logger
}

func NewCourseService(courseRepo courseStore, programRepo programStore, logger zerolog.Logger) *CourseService {
	return &CourseService{
		courseRepo:  courseRepo,
		programRepo: programRepo,
		logger:      logger,
	}
}

// GetAvailableCourses returns the courses offered for one program, level and
// semester, ordered by code. No match yields an empty slice.
func (s *CourseService) GetAvailableCourses(ctx context.Context, q *dto.AvailableCoursesQuery) ([]*models.Course, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}

	courses, err := s.courseRepo.FindOffered(ctx, q.Program, q.Level, models.Semester(q.Semester))
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(courses))
	out := make([]*models.Course, 0, len(courses))
	for _, c := range courses {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

func courseFromRequest(req *dto.CreateCourseRequest) *models.Course {
	return &models.Course{
		ProgramID: req.ProgramID,
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:     strings.TrimSpace(req.Title),
		Units:     req.Units,
		Level:     req.Level,
		Semester:  req.Semester,
	}
}

func checkCourse(c *models.Course) error {
	if !models.ValidLevel(c.Level) {
		return apperrors.NewValidationError("level must be one of 100, 200, 300, 400, 500").WithField("level")
	}
	if !c.Semester.Valid() {
		return apperrors.NewValidationError("semester must be \"First Semester\" or \"Second Semester\"").WithField("semester")
	}
	if c.Code == "" {
		return apperrors.NewValidationError("code is required").WithField("code")
	}
	return nil
}

// CreateCourse adds a course to a program's catalog
func (s *CourseService) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error) {
	c := courseFromRequest(req)
	if err := checkCourse(c); err != nil {
		return nil, err
	}
	if _, err := s.programRepo.GetByID(ctx, c.ProgramID); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("courseID", c.ID).Str("code", c.Code).Msg("Course created")
	return c, nil
}

// UpdateCourse replaces every editable field of a course
func (s *CourseService) UpdateCourse(ctx context.Context, id int64, req *dto.CreateCourseRequest) (*models.Course, error) {
	c := courseFromRequest(req)
	c.ID = id
	if err := checkCourse(c); err != nil {
		return nil, err
	}
	if _, err := s.programRepo.GetByID(ctx, c.ProgramID); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("courseID", id).Msg("Course deleted")
	return nil
}

// ProgramService manages degree programs
type ProgramService struct {
	programRepo programStore
	logger      zerolog.Logger
}

func NewProgramService(programRepo programStore, logger zerolog.Logger) *ProgramService {
	return &ProgramService{programRepo: programRepo, logger: logger}
}

func (s *ProgramService) ListPrograms(ctx context.Context) ([]*models.Program, error) {
	return s.programRepo.GetAll(ctx)
}

func (s *ProgramService) CreateProgram(ctx context.Context, req *dto.CreateProgramRequest) (*models.Program, error) {
	p := &models.Program{
		Name: strings.TrimSpace(req.Name),
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if p.Name == "" || p.Code == "" {
		return nil, apperrors.NewValidationError("name and code are required")
	}
	if err := s.programRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("programID", p.ID).Str("code", p.Code).Msg("Program created")
	return p, nil
}

func (s *ProgramService) UpdateProgram(ctx context.Context, id int64, req *dto.CreateProgramRequest) (*models.Program, error) {
	p := &models.Program{
		ID:   id,
		Name: strings.TrimSpace(req.Name),
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if p.Name == "" || p.Code == "" {
		return nil, apperrors.NewValidationError("name and code are required")
	}
	if err := s.programRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
