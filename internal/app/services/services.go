package services

import (
	"context"
	"time"

	"github.com/yigit/studentportal/internal/app/models"
)

// Store interfaces the services depend on. The repositories package
// satisfies them against Postgres; tests use in-memory fakes.

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateLastLogin(ctx context.Context, userID int64) error
}

type resetTokenStore interface {
	Create(ctx context.Context, userID int64, token string, expiryDate time.Time) error
	Get(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, token string) (bool, error)
}

type programStore interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id int64) (*models.Program, error)
	GetAll(ctx context.Context) ([]*models.Program, error)
	Update(ctx context.Context, program *models.Program) error
}

type courseStore interface {
	FindOffered(ctx context.Context, programID int64, level int, semester models.Semester) ([]*models.Course, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, c *models.Course) error
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type registrationStore interface {
	Create(ctx context.Context, reg *models.CourseRegistration) error
	ReplaceDocuments(ctx context.Context, reg *models.CourseRegistration, documentIDs []int64) error
	GetByID(ctx context.Context, id int64) (*models.CourseRegistration, error)
	FindByTerm(ctx context.Context, studentID, programID int64, level int, semester models.Semester) (*models.CourseRegistration, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.CourseRegistration, error)
}

type uploadStore interface {
	Create(ctx context.Context, u *models.Upload) error
	GetByID(ctx context.Context, id int64) (*models.Upload, error)
	ReplaceFile(ctx context.Context, u *models.Upload, notBefore time.Time) (bool, error)
	MarkVerified(ctx context.Context, id, adminID int64) (*models.Upload, bool, error)
	ListByStudent(ctx context.Context, studentID int64, offset, limit uint64) ([]*models.Upload, int64, error)
	ListPending(ctx context.Context, offset, limit uint64) ([]*models.Upload, int64, error)
	CountOwned(ctx context.Context, studentID int64, ids []int64) (int, error)
}

type newsStore interface {
	Create(ctx context.Context, post *models.NewsPost) error
	GetByID(ctx context.Context, id int64) (*models.NewsPost, error)
	List(ctx context.Context, department string, offset, limit uint64) ([]*models.NewsPost, int64, error)
	Update(ctx context.Context, post *models.NewsPost, removeIDs []int64) ([]models.NewsImage, error)
	Delete(ctx context.Context, id int64) ([]models.NewsImage, error)
	ToggleLike(ctx context.Context, postID, userID int64) (bool, error)
	AddComment(ctx context.Context, postID, authorID int64, content string) (*models.NewsComment, error)
	UpsertReaction(ctx context.Context, postID, userID int64, reaction models.ReactionType) error
	GetEngagement(ctx context.Context, postID int64) (*models.Engagement, error)
	CountEngagement(ctx context.Context, postIDs []int64) (map[int64]*models.Engagement, error)
}

type paymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	Settle(ctx context.Context, reference string, status models.PaymentStatus) (*models.Payment, error)
}
