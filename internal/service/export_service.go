package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
	"github.com/Anshuhim02/student-result-api/pkg/export"
)

// CSVFilename is the attachment name for the results export.
const CSVFilename = "my_results.csv"

var csvHeaders = []string{
	"ID", "Student Name", "Board", "Exam", "School", "Class",
	"Year", "Total Obtained", "Total Marks", "Percentage", "Grade",
	"Image Path", "Created At",
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a user's results into downloadable documents.
type ExportService struct {
	repo   resultRepository
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(repo resultRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// ExportCSV renders all of the user's results, newest first. An owner with no
// results yields a header-only file.
func (s *ExportService) ExportCSV(ctx context.Context, userID string) ([]byte, error) {
	results, err := s.repo.ListByCreated(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	dataset := export.Dataset{Headers: csvHeaders, Rows: make([]map[string]string, 0, len(results))}
	for _, r := range results {
		imagePath := ""
		if r.ImagePath != nil {
			imagePath = *r.ImagePath
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":             r.ID,
			"Student Name":   r.StudentName,
			"Board":          r.Board,
			"Exam":           r.Exam,
			"School":         r.School,
			"Class":          r.ClassName,
			"Year":           strconv.Itoa(r.Year),
			"Total Obtained": strconv.Itoa(r.TotalObtained),
			"Total Marks":    strconv.Itoa(r.TotalMarks),
			"Percentage":     fmt.Sprintf("%.2f", r.Percentage),
			"Grade":          r.Grade,
			"Image Path":     imagePath,
			"Created At":     r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportMarksheetPDF renders one owned result as a printable marksheet.
func (s *ExportService) ExportMarksheetPDF(ctx context.Context, userID, id string) ([]byte, string, error) {
	result, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	subjects, err := s.repo.GetSubjects(ctx, result.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	dataset := export.Dataset{
		Headers: []string{"Subject", "Obtained", "Total"},
		Rows:    make([]map[string]string, 0, len(subjects)+3),
	}
	for _, sub := range subjects {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Subject":  sub.SubjectName,
			"Obtained": strconv.Itoa(sub.Obtained),
			"Total":    strconv.Itoa(sub.Total),
		})
	}
	dataset.Rows = append(dataset.Rows,
		map[string]string{"Subject": "Total", "Obtained": strconv.Itoa(result.TotalObtained), "Total": strconv.Itoa(result.TotalMarks)},
		map[string]string{"Subject": "Percentage", "Obtained": fmt.Sprintf("%.2f%%", result.Percentage)},
		map[string]string{"Subject": "Grade", "Obtained": result.Grade},
	)

	title := fmt.Sprintf("%s - %s %d", result.StudentName, result.Exam, result.Year)
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}

	filename := fmt.Sprintf("marksheet_%s.pdf", result.ID)
	return payload, filename, nil
}
