package dto

import "github.com/Anshuhim02/student-result-api/internal/models"

// SubjectInput is one raw per-subject marks entry as submitted. Marks arrive
// as strings so blank rows can be dropped before numeric validation.
type SubjectInput struct {
	Name     string `json:"name"`
	Obtained string `json:"obtained"`
	Total    string `json:"total"`
}

// ResultForm binds the multipart form used by create and edit. Subjects is a
// JSON encoded array of SubjectInput; the optional image file is read
// separately from the multipart payload.
type ResultForm struct {
	StudentName string `form:"student_name"`
	Board       string `form:"board"`
	Exam        string `form:"exam"`
	School      string `form:"school"`
	ClassName   string `form:"class_name"`
	Year        int    `form:"year"`
	Subjects    string `form:"subjects"`
}

// ResultDetail combines a result with its ordered subject rows.
type ResultDetail struct {
	Result   models.Result    `json:"result"`
	Subjects []models.Subject `json:"subjects"`
}

// DashboardResponse is the listing payload: filtered results plus stats.
type DashboardResponse struct {
	Results []models.Result    `json:"results"`
	Stats   models.ResultStats `json:"stats"`
	Search  string             `json:"search"`
	Sort    string             `json:"sort"`
}
