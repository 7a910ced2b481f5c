package models

import "time"

// Program is a degree program owning a course catalog
type Program struct {
	ID        int64     `json:"id" db:"id" example:"3"`
	Name      string    `json:"name" db:"name" example:"Computer Science"`
	Code      string    `json:"code" db:"code" example:"CSC"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Course is a catalog entry offered for one (program, level, semester)
type Course struct {
	ID        int64     `json:"id" db:"id" example:"12"`
	ProgramID int64     `json:"programId" db:"program_id" example:"3"`
	Code      string    `json:"code" db:"code" example:"CSC201"`
	Title     string    `json:"title" db:"title" example:"Data Structures"`
	Units     int       `json:"units" db:"units" example:"3"`
	Level     int       `json:"level" db:"level" example:"200"`
	Semester  Semester  `json:"semester" db:"semester" example:"First Semester"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
