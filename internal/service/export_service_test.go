package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anshuhim02/student-result-api/internal/models"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
)

func TestExportCSVHeaderOnlyWhenEmpty(t *testing.T) {
	svc := NewExportService(newMockResultRepo(), nil, nil, zap.NewNop())

	payload, err := svc.ExportCSV(context.Background(), "u1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Student Name")
	assert.Contains(t, lines[0], "Percentage")
}

func TestExportCSVFormatsRows(t *testing.T) {
	imagePath := "uploads/scan.png"
	repo := newMockResultRepo()
	repo.listResp = []models.Result{
		{
			ID:            "r1",
			StudentName:   "Anshu",
			Board:         "CBSE",
			Exam:          "Finals",
			School:        "DPS",
			ClassName:     "10",
			Year:          2024,
			TotalObtained: 125,
			TotalMarks:    150,
			Percentage:    83.333333,
			Grade:         "A",
			ImagePath:     &imagePath,
			CreatedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
	}
	svc := NewExportService(repo, nil, nil, zap.NewNop())

	payload, err := svc.ExportCSV(context.Background(), "u1")
	require.NoError(t, err)

	body := string(payload)
	assert.Contains(t, body, "Anshu")
	assert.Contains(t, body, "83.33")
	assert.Contains(t, body, "2024-03-15 10:30:00")
	assert.Contains(t, body, "uploads/scan.png")

	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 2)
}

func TestExportCSVRowWithoutImage(t *testing.T) {
	repo := newMockResultRepo()
	repo.listResp = []models.Result{{ID: "r1", StudentName: "Anshu", Grade: "B", CreatedAt: time.Now()}}
	svc := NewExportService(repo, nil, nil, zap.NewNop())

	_, err := svc.ExportCSV(context.Background(), "u1")
	require.NoError(t, err)
}

func TestExportMarksheetPDF(t *testing.T) {
	repo := newMockResultRepo()
	repo.results["r1"] = &models.Result{
		ID:            "r1",
		UserID:        "u1",
		StudentName:   "Anshu",
		Exam:          "Finals",
		Year:          2024,
		TotalObtained: 125,
		TotalMarks:    150,
		Percentage:    83.33,
		Grade:         "A",
	}
	repo.subjects["r1"] = []models.Subject{
		{SubjectName: "Math", Obtained: 80, Total: 100},
		{SubjectName: "English", Obtained: 45, Total: 50},
	}
	svc := NewExportService(repo, nil, nil, zap.NewNop())

	payload, filename, err := svc.ExportMarksheetPDF(context.Background(), "u1", "r1")
	require.NoError(t, err)

	assert.Equal(t, "marksheet_r1.pdf", filename)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportMarksheetPDFNotFound(t *testing.T) {
	svc := NewExportService(newMockResultRepo(), nil, nil, zap.NewNop())

	_, _, err := svc.ExportMarksheetPDF(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
