package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

func catalog() *fakeCourses {
	return newFakeCourses(
		&models.Course{ID: 1, ProgramID: 3, Code: "CSC203", Title: "Discrete Structures", Units: 3, Level: 200, Semester: models.SemesterFirst},
		&models.Course{ID: 2, ProgramID: 3, Code: "CSC201", Title: "Data Structures", Units: 3, Level: 200, Semester: models.SemesterFirst},
		&models.Course{ID: 3, ProgramID: 3, Code: "CSC202", Title: "Operating Systems", Units: 3, Level: 200, Semester: models.SemesterSecond},
		&models.Course{ID: 4, ProgramID: 3, Code: "CSC301", Title: "Compilers", Units: 4, Level: 300, Semester: models.SemesterFirst},
		&models.Course{ID: 5, ProgramID: 4, Code: "MTH201", Title: "Linear Algebra", Units: 3, Level: 200, Semester: models.SemesterFirst},
	)
}

func TestGetAvailableCourses(t *testing.T) {
	svc := NewCourseService(catalog(), newFakePrograms(), zerolog.Nop())

	courses, err := svc.GetAvailableCourses(context.Background(), &dto.AvailableCoursesQuery{Program: 3, Level: 200, Semester: "First Semester"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CSC201", courses[0].Code)
	assert.Equal(t, "CSC203", courses[1].Code)
}

func TestGetAvailableCoursesNoMatchIsEmpty(t *testing.T) {
	svc := NewCourseService(catalog(), newFakePrograms(), zerolog.Nop())

	courses, err := svc.GetAvailableCourses(context.Background(), &dto.AvailableCoursesQuery{Program: 3, Level: 500, Semester: "Second Semester"})
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}

func TestGetAvailableCoursesValidatesInput(t *testing.T) {
	svc := NewCourseService(catalog(), newFakePrograms(), zerolog.Nop())

	tests := []struct {
		name  string
		query dto.AvailableCoursesQuery
		field string
	}{
		{"missing program", dto.AvailableCoursesQuery{Level: 200, Semester: "First Semester"}, "program"},
		{"missing level", dto.AvailableCoursesQuery{Program: 3, Semester: "First Semester"}, "level"},
		{"bad level", dto.AvailableCoursesQuery{Program: 3, Level: 250, Semester: "First Semester"}, "level"},
		{"missing semester", dto.AvailableCoursesQuery{Program: 3, Level: 200}, "semester"},
		{"bad semester", dto.AvailableCoursesQuery{Program: 3, Level: 200, Semester: "Summer"}, "semester"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetAvailableCourses(context.Background(), &tt.query)
			require.ErrorIs(t, err, apperrors.ErrValidationFailed)

			var ce *apperrors.CustomError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCreateCourse(t *testing.T) {
	programs := newFakePrograms(&models.Program{ID: 3, Name: "Computer Science", Code: "CSC"})
	svc := NewCourseService(catalog(), programs, zerolog.Nop())

	req := &dto.CreateCourseRequest{ProgramID: 3, Code: " csc205 ", Title: "Databases", Units: 3, Level: 200, Semester: models.SemesterFirst}
	c, err := svc.CreateCourse(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "CSC205", c.Code)
	assert.NotZero(t, c.ID)

	_, err = svc.CreateCourse(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	req.ProgramID = 42
	req.Code = "CSC299"
	_, err = svc.CreateCourse(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrProgramNotFound)
}

func TestUpdateAndDeleteCourse(t *testing.T) {
	programs := newFakePrograms(&models.Program{ID: 3, Name: "Computer Science", Code: "CSC"})
	courses := catalog()
	svc := NewCourseService(courses, programs, zerolog.Nop())

	c, err := svc.UpdateCourse(context.Background(), 2, &dto.CreateCourseRequest{
		ProgramID: 3, Code: "CSC201", Title: "Data Structures and Algorithms", Units: 4, Level: 200, Semester: models.SemesterFirst,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Units)

	_, err = svc.UpdateCourse(context.Background(), 2, &dto.CreateCourseRequest{
		ProgramID: 3, Code: "CSC201", Title: "x", Units: 4, Level: 150, Semester: models.SemesterFirst,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	require.NoError(t, svc.DeleteCourse(context.Background(), 2))
	_, err = svc.GetCourse(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestProgramService(t *testing.T) {
	svc := NewProgramService(newFakePrograms(), zerolog.Nop())

	p, err := svc.CreateProgram(context.Background(), &dto.CreateProgramRequest{Name: "Computer Science", Code: "csc"})
	require.NoError(t, err)
	assert.Equal(t, "CSC", p.Code)

	_, err = svc.CreateProgram(context.Background(), &dto.CreateProgramRequest{Name: "Computing", Code: "CSC"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.UpdateProgram(context.Background(), 99, &dto.CreateProgramRequest{Name: "X", Code: "X"})
	assert.ErrorIs(t, err, apperrors.ErrProgramNotFound)

	all, err := svc.ListPrograms(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
