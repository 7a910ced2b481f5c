package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/studentportal/internal/app/models"
	appRepos "github.com/yigit/studentportal/internal/app/repositories"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/auth"
)

// Options controls the default admin account
type Options struct {
	AdminEmail    string
	AdminPassword string
}

type programSeed struct {
	program appModels.Program
	courses []appModels.Course
}

var defaultCatalog = []programSeed{
	{
		program: appModels.Program{Name: "Computer Science", Code: "CSC"},
		courses: []appModels.Course{
			{Code: "CSC101", Title: "Introduction to Computing", Units: 3, Level: 100, Semester: appModels.SemesterFirst},
			{Code: "CSC103", Title: "Discrete Structures", Units: 2, Level: 100, Semester: appModels.SemesterFirst},
			{Code: "CSC102", Title: "Introduction to Programming", Units: 3, Level: 100, Semester: appModels.SemesterSecond},
			{Code: "CSC201", Title: "Data Structures", Units: 3, Level: 200, Semester: appModels.SemesterFirst},
			{Code: "CSC202", Title: "Computer Architecture", Units: 3, Level: 200, Semester: appModels.SemesterSecond},
		},
	},
	{
		program: appModels.Program{Name: "Physics", Code: "PHY"},
		courses: []appModels.Course{
			{Code: "PHY101", Title: "Mechanics", Units: 3, Level: 100, Semester: appModels.SemesterFirst},
			{Code: "PHY102", Title: "Electricity and Magnetism", Units: 3, Level: 100, Semester: appModels.SemesterSecond},
		},
	},
}

// CreateDefaultData inserts the sample catalog and the admin account.
// Rows that already exist are skipped so it is safe on every start.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, opts Options, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (programs/courses/admin)...")
	var finalErr error

	for _, entry := range defaultCatalog {
		programID, err := ensureProgram(ctx, repos.ProgramRepository, entry.program)
		if err != nil {
			lgr.Error().Err(err).Str("program", entry.program.Code).Msg("Error creating program")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		for _, course := range entry.courses {
			course.ProgramID = programID
			err := repos.CourseRepository.Create(ctx, &course)
			if err != nil && !errors.Is(err, apperrors.ErrConflict) {
				lgr.Error().Err(err).Str("course", course.Code).Msg("Error creating course")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	if err := ensureAdmin(ctx, repos.UserRepository, opts, lgr); err != nil {
		lgr.Error().Err(err).Msg("Error creating default admin user")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}

func ensureProgram(ctx context.Context, repo *appRepos.ProgramRepository, program appModels.Program) (int64, error) {
	err := repo.Create(ctx, &program)
	if err == nil {
		return program.ID, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return 0, err
	}

	existing, err := repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range existing {
		if p.Code == program.Code {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("program %s reported as duplicate but not found", program.Code)
}

func ensureAdmin(ctx context.Context, repo *appRepos.UserRepository, opts Options, lgr zerolog.Logger) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		lgr.Warn().Msg("No seed admin credentials configured, skipping admin user")
		return nil
	}

	_, err := repo.GetByEmail(ctx, opts.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return err
	}

	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}

	admin := &appModels.User{
		Email:     opts.AdminEmail,
		Password:  hash,
		FirstName: "Portal",
		LastName:  "Admin",
		RoleType:  appModels.RoleAdmin,
		IsActive:  true,
	}
	if err := repo.Create(ctx, admin); err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return err
	}
	lgr.Info().Str("email", admin.Email).Msg("Default admin user created")
	return nil
}
