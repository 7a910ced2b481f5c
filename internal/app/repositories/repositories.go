package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository               *UserRepository
	PasswordResetTokenRepository *PasswordResetTokenRepository
	ProgramRepository            *ProgramRepository
	CourseRepository             *CourseRepository
	RegistrationRepository       *RegistrationRepository
	UploadRepository             *UploadRepository
	NewsRepository               *NewsRepository
	PaymentRepository            *PaymentRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:               NewUserRepository(db),
		PasswordResetTokenRepository: NewPasswordResetTokenRepository(db),
		ProgramRepository:            NewProgramRepository(db),
		CourseRepository:             NewCourseRepository(db),
		RegistrationRepository:       NewRegistrationRepository(db),
		UploadRepository:             NewUploadRepository(db),
		NewsRepository:               NewNewsRepository(db),
		PaymentRepository:            NewPaymentRepository(db),
	}
}
