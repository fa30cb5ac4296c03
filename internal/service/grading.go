package service

import (
	"strconv"
	"strings"

	"github.com/Anshuhim02/student-result-api/internal/dto"
	"github.com/Anshuhim02/student-result-api/internal/models"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
)

// CalculateGrade maps a percentage to a letter grade. Thresholds are
// inclusive lower bounds evaluated highest first.
func CalculateGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}

// Aggregation is the derived outcome of one submitted subject set.
type Aggregation struct {
	Subjects      []models.Subject
	TotalObtained int
	TotalMarks    int
	Percentage    float64
	Grade         string
}

// AggregateSubjects validates a submitted subject sequence and derives the
// totals, percentage and grade. Rows with any blank field are dropped;
// malformed marks reject the whole submission; a zero marks total rejects
// the submission so no result is ever stored with total_marks == 0.
func AggregateSubjects(inputs []dto.SubjectInput) (*Aggregation, error) {
	agg := &Aggregation{Subjects: make([]models.Subject, 0, len(inputs))}

	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		obtainedRaw := strings.TrimSpace(in.Obtained)
		totalRaw := strings.TrimSpace(in.Total)
		if name == "" || obtainedRaw == "" || totalRaw == "" {
			continue
		}

		obtained, err := strconv.Atoi(obtainedRaw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject marks must be whole numbers")
		}
		total, err := strconv.Atoi(totalRaw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject marks must be whole numbers")
		}

		agg.Subjects = append(agg.Subjects, models.Subject{
			SubjectName: name,
			Obtained:    obtained,
			Total:       total,
		})
		agg.TotalObtained += obtained
		agg.TotalMarks += total
	}

	if agg.TotalMarks == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "total marks cannot be zero")
	}

	agg.Percentage = float64(agg.TotalObtained) / float64(agg.TotalMarks) * 100
	agg.Grade = CalculateGrade(agg.Percentage)
	return agg, nil
}
