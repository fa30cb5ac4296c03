package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anshuhim02/student-result-api/internal/dto"
	"github.com/Anshuhim02/student-result-api/internal/middleware"
	"github.com/Anshuhim02/student-result-api/internal/models"
	"github.com/Anshuhim02/student-result-api/internal/service"
)

type resultRepoStub struct {
	results  map[string]*models.Result
	subjects map[string][]models.Subject
	listResp []models.Result
}

func newResultRepoStub() *resultRepoStub {
	return &resultRepoStub{
		results:  make(map[string]*models.Result),
		subjects: make(map[string][]models.Subject),
	}
}

func (s *resultRepoStub) Create(ctx context.Context, result *models.Result, subjects []models.Subject) error {
	if result.ID == "" {
		result.ID = "r1"
	}
	s.results[result.ID] = result
	s.subjects[result.ID] = subjects
	return nil
}

func (s *resultRepoStub) List(ctx context.Context, userID string, filter models.ResultFilter) ([]models.Result, error) {
	return s.listResp, nil
}

func (s *resultRepoStub) ListByCreated(ctx context.Context, userID string) ([]models.Result, error) {
	return s.listResp, nil
}

func (s *resultRepoStub) Get(ctx context.Context, userID, id string) (*models.Result, error) {
	if r, ok := s.results[id]; ok && r.UserID == userID {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *resultRepoStub) GetSubjects(ctx context.Context, resultID string) ([]models.Subject, error) {
	return s.subjects[resultID], nil
}

func (s *resultRepoStub) Update(ctx context.Context, userID string, result *models.Result, subjects []models.Subject) error {
	if existing, ok := s.results[result.ID]; !ok || existing.UserID != userID {
		return sql.ErrNoRows
	}
	s.results[result.ID] = result
	s.subjects[result.ID] = subjects
	return nil
}

func (s *resultRepoStub) Delete(ctx context.Context, userID, id string) error {
	if existing, ok := s.results[id]; !ok || existing.UserID != userID {
		return sql.ErrNoRows
	}
	delete(s.results, id)
	return nil
}

type uploadStoreStub struct{}

func (uploadStoreStub) Allowed(filename string) bool { return true }

func (uploadStoreStub) Save(originalFilename string, size int64, r io.Reader) (string, error) {
	return "uploads/stub.png", nil
}

func (uploadStoreStub) Delete(reference string) error { return nil }

func newResultHandler(repo *resultRepoStub) *ResultHandler {
	svc := service.NewResultService(repo, uploadStoreStub{}, nil, nil, service.ResultServiceConfig{}, zap.NewNop())
	return NewResultHandler(svc)
}

func multipartRequest(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func subjectsField(t *testing.T, inputs []dto.SubjectInput) string {
	t.Helper()
	raw, err := json.Marshal(inputs)
	require.NoError(t, err)
	return string(raw)
}

func TestResultHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newResultRepoStub()
	handler := newResultHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/results", map[string]string{
		"student_name": "Anshu",
		"board":        "CBSE",
		"exam":         "Finals",
		"year":         "2024",
		"subjects": subjectsField(t, []dto.SubjectInput{
			{Name: "Math", Obtained: "80", Total: "100"},
			{Name: "English", Obtained: "45", Total: "50"},
		}),
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"grade":"A"`)
	assert.Len(t, repo.results, 1)
}

func TestResultHandlerCreateInvalidSubjects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler(newResultRepoStub())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/results", map[string]string{
		"student_name": "Anshu",
		"subjects":     "[broken",
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler(newResultRepoStub())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/results", map[string]string{"student_name": "Anshu"})

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newResultRepoStub()
	repo.listResp = []models.Result{{ID: "r1", StudentName: "Anshu", Percentage: 83.33, Grade: "A"}}
	handler := newResultHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results?search=ansh&sort=asc", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_results")
	assert.Contains(t, w.Body.String(), `"sort":"asc"`)
}

func TestResultHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newResultHandler(newResultRepoStub())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newResultRepoStub()
	repo.results["r1"] = &models.Result{ID: "r1", UserID: "u1"}
	handler := newResultHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/results/r1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.results)
}

func TestExportHandlerCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newResultRepoStub()
	svc := service.NewExportService(repo, nil, nil, zap.NewNop())
	handler := NewExportHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results/export/csv", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=my_results.csv", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Student Name")
}

func TestExportHandlerCSVWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewExportService(newResultRepoStub(), nil, nil, zap.NewNop())
	handler := NewExportHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/results/export/csv", nil)
	c.Request = req

	handler.ExportCSV(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
