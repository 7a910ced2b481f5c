package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

type registrationFixture struct {
	svc     *RegistrationService
	regs    *fakeRegistrations
	uploads *fakeUploads
}

func newRegistrationFixture(now time.Time) *registrationFixture {
	f := &registrationFixture{
		regs: newFakeRegistrations(),
		uploads: newFakeUploads(now,
			&models.Upload{ID: 10, StudentID: 1, Status: models.UploadPending},
			&models.Upload{ID: 11, StudentID: 1, Status: models.UploadPending},
			&models.Upload{ID: 20, StudentID: 2, Status: models.UploadPending},
		),
	}
	f.svc = NewRegistrationService(f.regs, catalog(), f.uploads, 0, zerolog.Nop())
	f.svc.now = fixedClock(now)
	return f
}

func registerReq(courseIDs []int64, docs ...int64) *dto.RegisterCoursesRequest {
	return &dto.RegisterCoursesRequest{
		Program:     3,
		Level:       200,
		Semester:    "First Semester",
		CourseIDs:   courseIDs,
		DocumentIDs: docs,
	}
}

func TestRegisterCreatesRegistration(t *testing.T) {
	f := newRegistrationFixture(testNow)

	resp, created, err := f.svc.Register(context.Background(), 1, registerReq([]int64{2, 1, 2}, 10))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []int64{1, 2}, resp.CourseIDs)
	assert.Equal(t, []int64{10}, resp.DocumentIDs)
	assert.Equal(t, models.RegistrationSubmitted, resp.Status)
	assert.Equal(t, testNow.Add(7*24*time.Hour), resp.GraceEndsAt)
}

func TestRegisterRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		req    *dto.RegisterCoursesRequest
		target error
	}{
		{"empty course list", registerReq(nil), apperrors.ErrValidationFailed},
		{"bad semester", &dto.RegisterCoursesRequest{Program: 3, Level: 200, Semester: "Rain Semester", CourseIDs: []int64{1}}, apperrors.ErrValidationFailed},
		{"course from another semester", registerReq([]int64{1, 3}), apperrors.ErrCourseNotFound},
		{"course from another program", registerReq([]int64{5}), apperrors.ErrCourseNotFound},
		{"unknown course", registerReq([]int64{999}), apperrors.ErrCourseNotFound},
		{"document owned by someone else", registerReq([]int64{1}, 20), apperrors.ErrUploadNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(testNow)
			_, _, err := f.svc.Register(context.Background(), 1, tt.req)
			assert.ErrorIs(t, err, tt.target)
			assert.Zero(t, f.regs.creates)
		})
	}
}

func TestRegisterWithinGracePeriod(t *testing.T) {
	f := newRegistrationFixture(testNow)
	_, _, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1, 2}, 10))
	require.NoError(t, err)

	f.svc.now = fixedClock(testNow.Add(3 * 24 * time.Hour))

	t.Run("same courses replace documents", func(t *testing.T) {
		resp, created, err := f.svc.Register(context.Background(), 1, registerReq([]int64{2, 1}, 11))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, []int64{11}, resp.DocumentIDs)
		assert.Equal(t, models.RegistrationEditable, resp.Status)
		assert.Equal(t, 1, f.regs.replaced)
	})

	t.Run("different courses conflict", func(t *testing.T) {
		_, _, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1}))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestRegisterAfterGracePeriodConflicts(t *testing.T) {
	f := newRegistrationFixture(testNow)
	_, _, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1, 2}))
	require.NoError(t, err)

	f.svc.now = fixedClock(testNow.Add(7 * 24 * time.Hour))
	_, _, err = f.svc.Register(context.Background(), 1, registerReq([]int64{1, 2}))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Zero(t, f.regs.replaced)
}

func TestRegisterResolvesConcurrentInsert(t *testing.T) {
	f := newRegistrationFixture(testNow)
	f.regs.raceWith = &models.CourseRegistration{
		StudentID:   1,
		ProgramID:   3,
		Level:       200,
		Semester:    models.SemesterFirst,
		CourseIDs:   []int64{1, 2},
		SubmittedAt: testNow,
		GraceEndsAt: testNow.Add(7 * 24 * time.Hour),
	}

	resp, created, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1, 2}, 10))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []int64{10}, resp.DocumentIDs)
	assert.Len(t, f.regs.regs, 1)
}

func TestRegisterSeparateTermsAreIndependent(t *testing.T) {
	f := newRegistrationFixture(testNow)
	_, _, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1}))
	require.NoError(t, err)

	req := registerReq([]int64{3})
	req.Semester = "Second Semester"
	_, created, err := f.svc.Register(context.Background(), 1, req)
	require.NoError(t, err)
	assert.True(t, created)

	list, err := f.svc.GetMyRegistrations(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetRegistrationOwnership(t *testing.T) {
	f := newRegistrationFixture(testNow)
	resp, _, err := f.svc.Register(context.Background(), 1, registerReq([]int64{1}))
	require.NoError(t, err)

	_, err = f.svc.GetRegistration(context.Background(), auth.Actor{UserID: 1, Role: models.RoleStudent}, resp.ID)
	require.NoError(t, err)

	_, err = f.svc.GetRegistration(context.Background(), auth.Actor{UserID: 2, Role: models.RoleStudent}, resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.GetRegistration(context.Background(), auth.Actor{UserID: 9, Role: models.RoleAdmin}, resp.ID)
	require.NoError(t, err)

	_, err = f.svc.GetRegistration(context.Background(), auth.Actor{UserID: 1, Role: models.RoleStudent}, 404)
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
}
