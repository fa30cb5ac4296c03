package models

import "time"

// Sort directions accepted by the result listing.
const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// Result is an exam result owned by exactly one user. Totals, percentage and
// grade are derived from the subject rows and stored denormalised for
// sorting and display.
type Result struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"-"`
	StudentName   string    `db:"student_name" json:"student_name"`
	Board         string    `db:"board" json:"board"`
	Exam          string    `db:"exam" json:"exam"`
	School        string    `db:"school" json:"school"`
	ClassName     string    `db:"class_name" json:"class_name"`
	Year          int       `db:"year" json:"year"`
	TotalObtained int       `db:"total_obtained" json:"total_obtained"`
	TotalMarks    int       `db:"total_marks" json:"total_marks"`
	Percentage    float64   `db:"percentage" json:"percentage"`
	Grade         string    `db:"grade" json:"grade"`
	ImagePath     *string   `db:"image_path" json:"image_path,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Subject is one per-subject marks row belonging to exactly one result. The
// full set is replaced wholesale on every edit; position keeps the submitted
// order stable across reads.
type Subject struct {
	ID          string `db:"id" json:"id"`
	ResultID    string `db:"result_id" json:"-"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	Obtained    int    `db:"obtained" json:"obtained"`
	Total       int    `db:"total" json:"total"`
	Position    int    `db:"position" json:"-"`
}

// ResultFilter captures listing criteria for the dashboard.
type ResultFilter struct {
	Search string
	Sort   string
}

// ResultStats aggregates the filtered result set for the dashboard.
type ResultStats struct {
	TotalResults      int     `json:"total_results"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestPercentage float64 `json:"highest_percentage"`
}
