package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anshuhim02/student-result-api/internal/dto"
	appErrors "github.com/Anshuhim02/student-result-api/pkg/errors"
)

func TestCalculateGrade(t *testing.T) {
	cases := []struct {
		percentage float64
		grade      string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{80, "A"},
		{79.99, "B"},
		{70, "B"},
		{69.99, "C"},
		{60, "C"},
		{59.99, "D"},
		{50, "D"},
		{49.99, "F"},
		{0, "F"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.grade, CalculateGrade(tc.percentage), "percentage %v", tc.percentage)
	}
}

func TestAggregateSubjectsDropsBlankRows(t *testing.T) {
	agg, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "Math", Obtained: "80", Total: "100"},
		{Name: "Science", Obtained: "", Total: ""},
		{Name: "English", Obtained: "45", Total: "50"},
	})
	require.NoError(t, err)

	assert.Len(t, agg.Subjects, 2)
	assert.Equal(t, 125, agg.TotalObtained)
	assert.Equal(t, 150, agg.TotalMarks)
	assert.InDelta(t, 83.33, agg.Percentage, 0.01)
	assert.Equal(t, "A", agg.Grade)
}

func TestAggregateSubjectsPreservesOrder(t *testing.T) {
	agg, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "Physics", Obtained: "70", Total: "100"},
		{Name: "Chemistry", Obtained: "65", Total: "100"},
	})
	require.NoError(t, err)

	require.Len(t, agg.Subjects, 2)
	assert.Equal(t, "Physics", agg.Subjects[0].SubjectName)
	assert.Equal(t, "Chemistry", agg.Subjects[1].SubjectName)
}

func TestAggregateSubjectsRejectsMalformedMarks(t *testing.T) {
	_, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "Math", Obtained: "eighty", Total: "100"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAggregateSubjectsRejectsZeroTotal(t *testing.T) {
	_, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "Math", Obtained: "0", Total: "0"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAggregateSubjectsRejectsAllBlank(t *testing.T) {
	_, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "", Obtained: "", Total: ""},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAggregateSubjectsFullMarks(t *testing.T) {
	agg, err := AggregateSubjects([]dto.SubjectInput{
		{Name: "Math", Obtained: "100", Total: "100"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 100, agg.Percentage, 0.001)
	assert.Equal(t, "A+", agg.Grade)
}
