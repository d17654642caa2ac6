package report

import (
	"math"
	"strings"
)

// InputKind selects how AnalysisRequest.Content is interpreted.
type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
)

// LocationNotIdentified is used when the reply has no usable location.
const LocationNotIdentified = "Location not identified"

// AnalysisRequest is a single citizen submission.
// For InputText, Content is the description; for InputImage it is an image URL or data URI.
type AnalysisRequest struct {
	Kind    InputKind `json:"inputType"`
	Content string    `json:"content"`
}

// AnalysisResult is the structured classification returned to the caller.
type AnalysisResult struct {
	IssueType  string  `json:"issue_type"`
	Location   string  `json:"location"`
	Confidence float64 `json:"confidence"`
}

// Normalize trims the string fields, substitutes the location sentinel and clamps
// confidence into [0,1]. An empty issue type is a parse error.
func (r AnalysisResult) Normalize() (AnalysisResult, error) {
	r.IssueType = strings.TrimSpace(r.IssueType)
	if r.IssueType == "" {
		return AnalysisResult{}, parseErrorf("issue_type is empty")
	}
	r.Location = strings.TrimSpace(r.Location)
	if r.Location == "" {
		r.Location = LocationNotIdentified
	}
	switch {
	case math.IsNaN(r.Confidence):
		return AnalysisResult{}, parseErrorf("confidence is not a number")
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	return r, nil
}
