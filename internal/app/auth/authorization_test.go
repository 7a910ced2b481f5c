package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

func TestCanModifyPost(t *testing.T) {
	physics := "Physics"
	post := &models.NewsPost{ID: 1, PosterID: 10, Department: &physics}
	global := &models.NewsPost{ID: 2, PosterID: 10}

	tests := []struct {
		name  string
		actor Actor
		post  *models.NewsPost
		want  bool
	}{
		{"owner", Actor{UserID: 10, Role: models.RoleDepartmentAdmin}, post, true},
		{"admin", Actor{UserID: 99, Role: models.RoleAdmin}, global, true},
		{"department admin of same department", Actor{UserID: 11, Role: models.RoleDepartmentAdmin, Department: "Physics"}, post, true},
		{"department admin of other department", Actor{UserID: 11, Role: models.RoleDepartmentAdmin, Department: "Chemistry"}, post, false},
		{"department admin on global post", Actor{UserID: 11, Role: models.RoleDepartmentAdmin, Department: "Physics"}, global, false},
		{"student", Actor{UserID: 12, Role: models.RoleStudent}, post, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModifyPost(tt.actor, tt.post))
		})
	}
}

func TestRequireRoles(t *testing.T) {
	student := Actor{UserID: 1, Role: models.RoleStudent}
	admin := Actor{UserID: 2, Role: models.RoleAdmin}

	assert.ErrorIs(t, RequireAdmin(student), apperrors.ErrPermissionDenied)
	assert.NoError(t, RequireAdmin(admin))
	assert.NoError(t, RequireStudent(student))
	assert.ErrorIs(t, RequireStudent(admin), apperrors.ErrPermissionDenied)

	assert.True(t, CanAccessOwned(student, 1))
	assert.False(t, CanAccessOwned(student, 2))
	assert.True(t, CanAccessOwned(admin, 1))
}
