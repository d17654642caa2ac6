package report

import (
	"encoding/json"
	"strings"
)

// Extract pulls the first-'{'-to-last-'}' substring out of a freeform provider reply
// and decodes it into an AnalysisResult. Nested or multiple objects are not
// disambiguated; the whole span must decode as one object.
func Extract(reply string) (AnalysisResult, error) {
	raw, ok := jsonSpan(reply)
	if !ok {
		return AnalysisResult{}, parseErrorf("no JSON found in response")
	}

	var res AnalysisResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return AnalysisResult{}, parseErrorf("%v", err)
	}
	return res, nil
}

// ExtractValid is Extract followed by Normalize.
func ExtractValid(reply string) (AnalysisResult, error) {
	res, err := Extract(reply)
	if err != nil {
		return AnalysisResult{}, err
	}
	return res.Normalize()
}

func jsonSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}
