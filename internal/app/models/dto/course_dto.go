package dto

import "github.com/yigit/studentportal/internal/app/models"

// AvailableCoursesQuery selects one offering of the catalog
type AvailableCoursesQuery struct {
	Program  int64  `form:"program" validate:"required,gt=0" example:"3"`
	Level    int    `form:"level" validate:"required,level" example:"200"`
	Semester string `form:"semester" validate:"required,semester" example:"First Semester"`
}

// CreateProgramRequest adds a degree program
type CreateProgramRequest struct {
	Name string `json:"name" binding:"required,max=200"`
	Code string `json:"code" binding:"required,max=20"`
}

// CreateCourseRequest adds a catalog course. Also used for full updates.
type CreateCourseRequest struct {
	ProgramID int64           `json:"programId" binding:"required,min=1"`
	Code      string          `json:"code" binding:"required,max=20"`
	Title     string          `json:"title" binding:"required,max=200"`
	Units     int             `json:"units" binding:"required,min=1,max=12"`
	Level     int             `json:"level" binding:"required,oneof=100 200 300 400 500"`
	Semester  models.Semester `json:"semester" binding:"required,oneof='First Semester' 'Second Semester'"`
}

// CourseResponse is the public view of a course
type CourseResponse struct {
	ID        int64           `json:"id"`
	ProgramID int64           `json:"programId"`
	Code      string          `json:"code"`
	Title     string          `json:"title"`
	Units     int             `json:"units"`
	Level     int             `json:"level"`
	Semester  models.Semester `json:"semester"`
}

func NewCourseResponse(c *models.Course) CourseResponse {
	return CourseResponse{
		ID:        c.ID,
		ProgramID: c.ProgramID,
		Code:      c.Code,
		Title:     c.Title,
		Units:     c.Units,
		Level:     c.Level,
		Semester:  c.Semester,
	}
}

func NewCourseResponses(courses []*models.Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, NewCourseResponse(c))
	}
	return out
}
