package prompt

import (
	"fmt"

	"github.com/bryanwahyu/civic-lens/internal/domain/ai"
	"github.com/bryanwahyu/civic-lens/internal/domain/report"
)

// TextSystemPrompt instructs the model to classify a free-text report.
const TextSystemPrompt = `You are a civic issue analyzer. Extract the issue type (like "pothole", "broken streetlight", "garbage", etc.) and location from the user's description.
Respond ONLY with a JSON object in this exact format:
{"issue_type": "the type of issue", "location": "the location", "confidence": 0.95}`

// ImageSystemPrompt instructs the model to classify a photo of a civic problem.
var ImageSystemPrompt = fmt.Sprintf(`You are a civic issue analyzer. Analyze the image and identify civic problems like potholes, broken infrastructure, garbage, etc.
Extract any visible location information from signs, landmarks, or context.
Respond ONLY with a JSON object in this exact format:
{"issue_type": "the type of issue", "location": "the location or '%s'", "confidence": 0.85}`, report.LocationNotIdentified)

// ImageUserPrompt accompanies the image part of the user message.
const ImageUserPrompt = "Analyze this image for civic issues and extract location if visible."

// Build returns the system + user messages for req. Content is passed through untouched;
// only the input kind is validated here.
func Build(req report.AnalysisRequest) ([]ai.Message, error) {
	switch req.Kind {
	case report.InputText:
		return []ai.Message{
			{Role: ai.RoleSystem, Text: TextSystemPrompt},
			{Role: ai.RoleUser, Text: req.Content},
		}, nil
	case report.InputImage:
		return []ai.Message{
			{Role: ai.RoleSystem, Text: ImageSystemPrompt},
			{Role: ai.RoleUser, Parts: []ai.Part{
				{Type: ai.PartImage, ImageURL: req.Content},
				{Type: ai.PartText, Text: ImageUserPrompt},
			}},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", report.ErrInvalidInput, req.Kind)
	}
}
