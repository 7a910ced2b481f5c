package auth

import (
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID     int64
	Role       models.RoleType
	Department string // set for department admins
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// CanModifyPost reports whether a may edit or delete post: the poster, any
// ADMIN, or a DEPARTMENT_ADMIN of the post's department.
func CanModifyPost(a Actor, post *models.NewsPost) bool {
	switch {
	case a.UserID == post.PosterID:
		return true
	case a.Role == models.RoleAdmin:
		return true
	case a.Role == models.RoleDepartmentAdmin:
		return post.Department != nil && a.Department != "" && *post.Department == a.Department
	default:
		return false
	}
}

// CanAccessOwned reports whether a may read a record owned by ownerID
func CanAccessOwned(a Actor, ownerID int64) bool {
	return a.UserID == ownerID || a.IsAdmin()
}

// RequireAdmin returns a ForbiddenError unless a holds an admin role
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return apperrors.NewForbiddenError("this action requires an administrator")
	}
	return nil
}

// RequireStudent returns a ForbiddenError unless a is a student
func RequireStudent(a Actor) error {
	if a.Role != models.RoleStudent {
		return apperrors.NewForbiddenError("this action is only available to students")
	}
	return nil
}
