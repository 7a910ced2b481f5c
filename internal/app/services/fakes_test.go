package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/repositories"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/filestorage"
	"github.com/yigit/studentportal/internal/pkg/payment"
	"github.com/yigit/studentportal/internal/pkg/websocket"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	lastLogin map[int64]bool
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*models.User{}, lastLogin: map[int64]bool{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.NewConflictError("an account with this email already exists").WithField("email")
		}
		if u.MatricNumber != nil && user.MatricNumber != nil && *u.MatricNumber == *user.MatricNumber {
			return apperrors.NewConflictError("an account with this matric number already exists").WithField("matricNumber")
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrUserNotFound, "user not found")
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperrors.NewNotFoundError(apperrors.ErrUserNotFound, "user not found")
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return apperrors.NewNotFoundError(apperrors.ErrUserNotFound, "user not found")
	}
	u.Password = hash
	return nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin[userID] = true
	return nil
}

type fakeResetTokens struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
}

func newFakeResetTokens() *fakeResetTokens {
	return &fakeResetTokens{tokens: map[string]*models.PasswordResetToken{}}
}

func (f *fakeResetTokens) Create(_ context.Context, userID int64, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, t := range f.tokens {
		if t.UserID == userID && !t.Used {
			delete(f.tokens, k)
		}
	}
	f.tokens[token] = &models.PasswordResetToken{UserID: userID, Token: token, ExpiryDate: expiry}
	return nil
}

func (f *fakeResetTokens) Get(_ context.Context, token string) (*models.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrResetTokenNotFound, "reset token not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeResetTokens) MarkUsed(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok || t.Used {
		return false, nil
	}
	t.Used = true
	return true, nil
}

type fakePrograms struct {
	programs map[int64]*models.Program
	nextID   int64
}

func newFakePrograms(programs ...*models.Program) *fakePrograms {
	f := &fakePrograms{programs: map[int64]*models.Program{}}
	for _, p := range programs {
		f.programs[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakePrograms) Create(_ context.Context, p *models.Program) error {
	for _, existing := range f.programs {
		if existing.Code == p.Code {
			return apperrors.NewConflictError("a program with this code already exists").WithField("code")
		}
	}
	f.nextID++
	p.ID = f.nextID
	f.programs[p.ID] = p
	return nil
}

func (f *fakePrograms) GetByID(_ context.Context, id int64) (*models.Program, error) {
	p, ok := f.programs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found")
	}
	return p, nil
}

func (f *fakePrograms) GetAll(context.Context) ([]*models.Program, error) {
	out := make([]*models.Program, 0, len(f.programs))
	for _, p := range f.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePrograms) Update(_ context.Context, p *models.Program) error {
	if _, ok := f.programs[p.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found")
	}
	f.programs[p.ID] = p
	return nil
}

type fakeCourses struct {
	courses map[int64]*models.Course
	nextID  int64
}

func newFakeCourses(courses ...*models.Course) *fakeCourses {
	f := &fakeCourses{courses: map[int64]*models.Course{}}
	for _, c := range courses {
		f.courses[c.ID] = c
		if c.ID > f.nextID {
			f.nextID = c.ID
		}
	}
	return f
}

func (f *fakeCourses) FindOffered(_ context.Context, programID int64, level int, semester models.Semester) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range f.courses {
		if c.ProgramID == programID && c.Level == level && c.Semester == semester {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeCourses) GetByID(_ context.Context, id int64) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
	}
	return c, nil
}

func (f *fakeCourses) Create(_ context.Context, c *models.Course) error {
	for _, existing := range f.courses {
		if existing.ProgramID == c.ProgramID && existing.Level == c.Level &&
			existing.Semester == c.Semester && existing.Code == c.Code {
			return apperrors.NewConflictError("course already exists for this term").WithField("code")
		}
	}
	f.nextID++
	c.ID = f.nextID
	f.courses[c.ID] = c
	return nil
}

func (f *fakeCourses) Update(_ context.Context, c *models.Course) error {
	if _, ok := f.courses[c.ID]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
	}
	f.courses[c.ID] = c
	return nil
}

func (f *fakeCourses) Delete(_ context.Context, id int64) error {
	if _, ok := f.courses[id]; !ok {
		return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
	}
	delete(f.courses, id)
	return nil
}

type fakeRegistrations struct {
	mu       sync.Mutex
	regs     map[int64]*models.CourseRegistration
	nextID   int64
	creates  int
	replaced int
	// raceWith is inserted by the first Create call to simulate a concurrent submit
	raceWith *models.CourseRegistration
}

func newFakeRegistrations() *fakeRegistrations {
	return &fakeRegistrations{regs: map[int64]*models.CourseRegistration{}}
}

func (f *fakeRegistrations) insert(reg *models.CourseRegistration) {
	f.nextID++
	reg.ID = f.nextID
	f.regs[reg.ID] = reg
}

func (f *fakeRegistrations) Create(_ context.Context, reg *models.CourseRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.raceWith != nil {
		f.insert(f.raceWith)
		f.raceWith = nil
	}
	for _, r := range f.regs {
		if r.StudentID == reg.StudentID && r.ProgramID == reg.ProgramID && r.Level == reg.Level && r.Semester == reg.Semester {
			return repositories.ErrRegistrationExists
		}
	}
	f.insert(reg)
	return nil
}

func (f *fakeRegistrations) ReplaceDocuments(_ context.Context, reg *models.CourseRegistration, documentIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced++
	reg.DocumentIDs = documentIDs
	return nil
}

func (f *fakeRegistrations) GetByID(_ context.Context, id int64) (*models.CourseRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrRegistrationNotFound, "registration not found")
	}
	return r, nil
}

func (f *fakeRegistrations) FindByTerm(_ context.Context, studentID, programID int64, level int, semester models.Semester) (*models.CourseRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.regs {
		if r.StudentID == studentID && r.ProgramID == programID && r.Level == level && r.Semester == semester {
			return r, nil
		}
	}
	return nil, apperrors.NewNotFoundError(apperrors.ErrRegistrationNotFound, "registration not found")
}

func (f *fakeRegistrations) ListByStudent(_ context.Context, studentID int64) ([]*models.CourseRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CourseRegistration
	for _, r := range f.regs {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeUploads struct {
	mu      sync.Mutex
	uploads map[int64]*models.Upload
	nextID  int64
	now     time.Time
}

func newFakeUploads(now time.Time, uploads ...*models.Upload) *fakeUploads {
	f := &fakeUploads{uploads: map[int64]*models.Upload{}, now: now}
	for _, u := range uploads {
		f.uploads[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUploads) Create(_ context.Context, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.Status = models.UploadPending
	u.CreatedAt = f.now
	u.UpdatedAt = f.now
	f.uploads[u.ID] = u
	return nil
}

func (f *fakeUploads) GetByID(_ context.Context, id int64) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrUploadNotFound, "upload not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploads) ReplaceFile(_ context.Context, u *models.Upload, notBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.uploads[u.ID]
	if !ok || stored.StudentID != u.StudentID || stored.Status != models.UploadPending || !stored.CreatedAt.After(notBefore) {
		return false, nil
	}
	cp := *u
	f.uploads[u.ID] = &cp
	return true, nil
}

func (f *fakeUploads) MarkVerified(_ context.Context, id, adminID int64) (*models.Upload, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, false, apperrors.NewNotFoundError(apperrors.ErrUploadNotFound, "upload not found")
	}
	if u.Status == models.UploadVerified {
		return u, false, nil
	}
	u.Status = models.UploadVerified
	u.VerifiedBy = &adminID
	at := f.now
	u.VerifiedAt = &at
	return u, true, nil
}

func (f *fakeUploads) list(match func(*models.Upload) bool, offset, limit uint64) ([]*models.Upload, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Upload
	for _, u := range f.uploads {
		if match(u) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= uint64(len(all)) {
		return nil, total
	}
	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return all[offset:end], total
}

func (f *fakeUploads) ListByStudent(_ context.Context, studentID int64, offset, limit uint64) ([]*models.Upload, int64, error) {
	items, total := f.list(func(u *models.Upload) bool { return u.StudentID == studentID }, offset, limit)
	return items, total, nil
}

func (f *fakeUploads) ListPending(_ context.Context, offset, limit uint64) ([]*models.Upload, int64, error) {
	items, total := f.list(func(u *models.Upload) bool { return u.Status == models.UploadPending }, offset, limit)
	return items, total, nil
}

func (f *fakeUploads) CountOwned(_ context.Context, studentID int64, ids []int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if u, ok := f.uploads[id]; ok && u.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

// memStorage keeps saved files in memory
type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	n       int
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (m *memStorage) Save(_ context.Context, r io.Reader, originalName, subDir string) (*filestorage.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	path := subDir + "/" + strings.Repeat("f", m.n) + "-" + originalName
	m.files[path] = data
	return &filestorage.StoredFile{
		Path:     path,
		URL:      "http://localhost/uploads/" + path,
		Filename: originalName,
		Size:     int64(len(data)),
		MimeType: "application/octet-stream",
	}, nil
}

func (m *memStorage) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// fileHeader builds a *multipart.FileHeader the way gin hands one to a controller
func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field][0]
}

type fakePayments struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	settles  int
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: map[string]*models.Payment{}}
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = int64(len(f.payments) + 1)
	p.Status = models.PaymentInitialized
	f.payments[p.Reference] = p
	return nil
}

func (f *fakePayments) GetByReference(_ context.Context, reference string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrPaymentNotFound, "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) Settle(_ context.Context, reference string, status models.PaymentStatus) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settles++
	p, ok := f.payments[reference]
	if !ok {
		return nil, apperrors.NewNotFoundError(apperrors.ErrPaymentNotFound, "payment not found")
	}
	if p.Status == models.PaymentInitialized {
		p.Status = status
	}
	cp := *p
	return &cp, nil
}

type stubGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	status      payment.Status
	verifyCalls int
	lastInit    payment.InitRequest
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Initialize(_ context.Context, req payment.InitRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastInit = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.Order{ID: "ORDER-" + req.Reference[:8], ApprovalURL: "https://pay.example/approve", Status: payment.StatusPending}, nil
}

func (g *stubGateway) Verify(_ context.Context, _ string) (payment.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return "", g.verifyErr
	}
	return g.status, nil
}

// fakeTracker is an in-memory presence.Tracker
type fakeTracker struct {
	mu   sync.Mutex
	seen map[int64]time.Time
	err  error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{seen: map[int64]time.Time{}}
}

func (f *fakeTracker) Touch(_ context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seen[userID] = at
	return nil
}

func (f *fakeTracker) Clear(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, userID)
	return nil
}

func (f *fakeTracker) CountSince(_ context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, at := range f.seen {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*websocket.NewsEvent
}

func (p *recordingPublisher) Publish(ev *websocket.NewsEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
