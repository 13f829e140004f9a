package scoring

import (
	"errors"
	"testing"
)

func TestExtractAssessments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []OracleScore
		wantErr bool
	}{
		{
			name: "plain array",
			raw:  `[{"riskScore": 40, "riskReason": "unusual itinerary"}, {"riskScore": 10, "riskReason": "routine"}]`,
			want: []OracleScore{{40, "unusual itinerary"}, {10, "routine"}},
		},
		{
			name: "fenced json",
			raw:  "```json\n[{\"riskScore\": 25, \"riskReason\": \"minor gaps\"}]\n```",
			want: []OracleScore{{25, "minor gaps"}},
		},
		{
			name: "fence without language tag",
			raw:  "```\n[{\"riskScore\": 25, \"riskReason\": \"minor gaps\"}]\n```",
			want: []OracleScore{{25, "minor gaps"}},
		},
		{
			name: "envelope object",
			raw:  `{"assessments": [{"riskScore": 70, "riskReason": "watchlist adjacent"}]}`,
			want: []OracleScore{{70, "watchlist adjacent"}},
		},
		{
			name: "surrounding prose",
			raw:  `Here are the assessments you asked for: [{"riskScore": 5, "riskReason": "clean"}] Let me know if you need more.`,
			want: []OracleScore{{5, "clean"}},
		},
		{
			name: "extra element keys tolerated",
			raw:  `[{"riskScore": 15, "riskReason": "ok", "confidence": 0.9}]`,
			want: []OracleScore{{15, "ok"}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []OracleScore{},
		},
		{
			name:    "empty body",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "prose only",
			raw:     "I cannot assess these travelers.",
			wantErr: true,
		},
		{
			name:    "element missing riskScore",
			raw:     `[{"riskReason": "no score"}]`,
			wantErr: true,
		},
		{
			name:    "array of scalars",
			raw:     `[1, 2, 3]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAssessments(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d scores, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("score %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
