package scoring

import (
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// OracleScore is one element of the oracle's assessment array.
type OracleScore struct {
	RiskScore  int    `json:"riskScore"`
	RiskReason string `json:"riskReason"`
}

// ExtractAssessments coerces a raw oracle body into the expected
// [{riskScore, riskReason}] array. Oracles wrap the array in code fences,
// prose, or an enclosing object often enough that a best-effort strip is
// part of the contract; anything still undecodable is a malformed response.
func ExtractAssessments(raw string) ([]OracleScore, error) {
	content := strings.TrimSpace(stripFences(strings.TrimSpace(raw)))
	if content == "" {
		return nil, &MalformedResponseError{Reason: "empty body"}
	}

	if scores, err := decodeCandidate([]byte(content)); err == nil {
		return scores, nil
	}

	// Last resort: the outermost bracketed span.
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if scores, err := decodeArray([]byte(content[start : end+1])); err == nil {
			return scores, nil
		}
	}
	return nil, &MalformedResponseError{Reason: "no assessment array found"}
}

func decodeCandidate(data []byte) ([]OracleScore, error) {
	switch data[0] {
	case '[':
		return decodeArray(data)
	case '{':
		// Some oracles wrap the array in an envelope object; take the first
		// array-valued field.
		var found []byte
		err := jsonparser.ObjectEach(data, func(_, value []byte, dataType jsonparser.ValueType, _ int) error {
			if found == nil && dataType == jsonparser.Array {
				found = value
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("invalid envelope object: %w", err)
		}
		if found == nil {
			return nil, fmt.Errorf("envelope object carries no array")
		}
		return decodeArray(found)
	}
	return nil, fmt.Errorf("neither array nor object")
}

func decodeArray(data []byte) ([]OracleScore, error) {
	out := []OracleScore{}
	var inner error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if inner != nil {
			return
		}
		if dataType != jsonparser.Object {
			inner = fmt.Errorf("array element is %s, want object", dataType)
			return
		}
		score, err := jsonparser.GetInt(value, "riskScore")
		if err != nil {
			inner = fmt.Errorf("element missing riskScore: %w", err)
			return
		}
		reason, _ := jsonparser.GetString(value, "riskReason")
		out = append(out, OracleScore{RiskScore: int(score), RiskReason: reason})
	})
	if err != nil {
		return nil, err
	}
	if inner != nil {
		return nil, inner
	}
	return out, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
