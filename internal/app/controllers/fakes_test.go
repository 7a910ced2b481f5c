package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.RegisterBindingValidators()
}

// as puts a caller on the context the way JWTAuth does
func as(userID int64, role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRoleType, string(role))
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r http.Handler, method, path string, fields map[string]string, fileField, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, into))
}

type fakeRegistrations struct {
	created bool
	err     error
	got     *dto.RegisterCoursesRequest
	gotID   int64
}

func (f *fakeRegistrations) Register(_ context.Context, studentID int64, req *dto.RegisterCoursesRequest) (*dto.RegistrationResponse, bool, error) {
	f.got, f.gotID = req, studentID
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.RegistrationResponse{ID: 9, StudentID: studentID, CourseIDs: req.CourseIDs, Status: models.RegistrationEditable}, f.created, nil
}

func (f *fakeRegistrations) GetMyRegistrations(_ context.Context, studentID int64) ([]dto.RegistrationResponse, error) {
	return []dto.RegistrationResponse{{ID: 9, StudentID: studentID}}, f.err
}

func (f *fakeRegistrations) GetRegistration(_ context.Context, actor auth.Actor, id int64) (*dto.RegistrationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.RegistrationResponse{ID: id, StudentID: actor.UserID}, nil
}

type fakeNewsService struct {
	err       error
	files     int
	lastPost  int64
	lastActor auth.Actor
}

func (f *fakeNewsService) detail(id int64) (*dto.NewsPostDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastPost = id
	d := &dto.NewsPostDetail{}
	d.ID = id
	return d, nil
}

func (f *fakeNewsService) ListPosts(context.Context, *dto.NewsListQuery) (*dto.Page[dto.NewsPostSummary], error) {
	return &dto.Page[dto.NewsPostSummary]{Items: []dto.NewsPostSummary{}}, f.err
}

func (f *fakeNewsService) GetPost(_ context.Context, _, postID int64) (*dto.NewsPostDetail, error) {
	return f.detail(postID)
}

func (f *fakeNewsService) CreatePost(_ context.Context, actor auth.Actor, _ *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error) {
	f.lastActor, f.files = actor, len(files)
	return f.detail(1)
}

func (f *fakeNewsService) UpdatePost(_ context.Context, actor auth.Actor, postID int64, _ *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error) {
	f.lastActor, f.files = actor, len(files)
	return f.detail(postID)
}

func (f *fakeNewsService) DeletePost(_ context.Context, actor auth.Actor, postID int64) error {
	f.lastActor, f.lastPost = actor, postID
	return f.err
}

func (f *fakeNewsService) ToggleLike(_ context.Context, _, postID int64) (*dto.NewsPostDetail, error) {
	return f.detail(postID)
}

func (f *fakeNewsService) AddComment(_ context.Context, _, postID int64, _ *dto.CommentRequest) (*dto.NewsPostDetail, error) {
	return f.detail(postID)
}

func (f *fakeNewsService) React(_ context.Context, _, postID int64, _ *dto.ReactRequest) (*dto.NewsPostDetail, error) {
	return f.detail(postID)
}

type fakePayments struct {
	err error
}

func (f *fakePayments) Initialize(_ context.Context, _ int64, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.InitializePaymentResponse{Reference: "ref-1", OrderID: "ORDER-1", Status: models.PaymentInitialized}, nil
}

func (f *fakePayments) Verify(_ context.Context, _ auth.Actor, reference string) (*dto.VerifyPaymentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.VerifyPaymentResponse{Reference: reference, Status: models.PaymentVerified, Amount: 2500, Currency: "USD"}, nil
}

type fakePresence struct {
	count      int64
	heartbeats []int64
}

func (f *fakePresence) Heartbeat(_ context.Context, userID int64, _ models.RoleType) error {
	f.heartbeats = append(f.heartbeats, userID)
	return nil
}

func (f *fakePresence) CountOnline(context.Context) (int64, error) { return f.count, nil }

func (f *fakePresence) Window() time.Duration { return 5 * time.Minute }

type fakeCourses struct {
	err     error
	query   *dto.AvailableCoursesQuery
	deleted int64
}

func (f *fakeCourses) GetAvailableCourses(_ context.Context, q *dto.AvailableCoursesQuery) ([]*models.Course, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Course{{ID: 1, Code: "CSC101", Level: q.Level, Semester: models.Semester(q.Semester)}}, nil
}

func (f *fakeCourses) GetCourse(_ context.Context, id int64) (*models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Course{ID: id}, nil
}

func (f *fakeCourses) CreateCourse(_ context.Context, req *dto.CreateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: 7, Code: req.Code}, f.err
}

func (f *fakeCourses) UpdateCourse(_ context.Context, id int64, req *dto.CreateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: id, Code: req.Code}, f.err
}

func (f *fakeCourses) DeleteCourse(_ context.Context, id int64) error {
	f.deleted = id
	return f.err
}

type fakePrograms struct{}

func (fakePrograms) ListPrograms(context.Context) ([]*models.Program, error) {
	return []*models.Program{{ID: 1, Name: "Computer Science", Code: "CSC"}}, nil
}

func (fakePrograms) CreateProgram(_ context.Context, req *dto.CreateProgramRequest) (*models.Program, error) {
	return &models.Program{ID: 2, Name: req.Name, Code: req.Code}, nil
}

func (fakePrograms) UpdateProgram(_ context.Context, id int64, req *dto.CreateProgramRequest) (*models.Program, error) {
	return &models.Program{ID: id, Name: req.Name, Code: req.Code}, nil
}

type fakeAuth struct {
	err error
}

func (f *fakeAuth) SignupStudent(_ context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AuthResponse{User: dto.UserResponse{ID: 1, Email: req.Email, Role: models.RoleStudent}}, nil
}

func (f *fakeAuth) Login(_ context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AuthResponse{Token: dto.TokenResponse{AccessToken: "t", TokenType: "Bearer"}}, nil
}

func (f *fakeAuth) Logout(context.Context, int64) error { return f.err }

func (f *fakeAuth) ForgotPassword(context.Context, *dto.ForgotPasswordRequest) error { return f.err }

func (f *fakeAuth) ResetPassword(context.Context, *dto.ResetPasswordRequest) error { return f.err }

func (f *fakeAuth) GetProfile(_ context.Context, userID int64) (*dto.UserResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.UserResponse{ID: userID}, nil
}
