package scoring

import (
	"testing"

	"github.com/TravelOpsHQ/travelcore-go/types"
)

func TestDeterministicScorer_Factors(t *testing.T) {
	scorer := DeterministicScorer{}
	tests := []struct {
		name       string
		record     types.FeatureRecord
		wantScore  int
		wantReason string
	}{
		{
			name:       "no factors",
			record:     types.FeatureRecord{SubjectID: "t1", AgeBucket: types.Age30to44},
			wantScore:  10,
			wantReason: "low risk profile",
		},
		{
			name:       "senior bracket",
			record:     types.FeatureRecord{SubjectID: "t1", AgeBucket: types.Age75Plus},
			wantScore:  40,
			wantReason: "senior age bracket",
		},
		{
			name:       "some missing fields",
			record:     types.FeatureRecord{SubjectID: "t1", AgeBucket: types.Age18to29, MissingFieldCount: 2},
			wantScore:  25,
			wantReason: "incomplete profile",
		},
		{
			name:       "many missing fields",
			record:     types.FeatureRecord{SubjectID: "t1", AgeBucket: types.Age18to29, MissingFieldCount: 4},
			wantScore:  50,
			wantReason: "many missing profile fields",
		},
		{
			name:       "high risk hint",
			record:     types.FeatureRecord{SubjectID: "t1", AgeBucket: types.Age18to29, RiskCategoryHint: "high"},
			wantScore:  35,
			wantReason: "flagged high risk",
		},
		{
			name: "all factors",
			record: types.FeatureRecord{
				SubjectID:         "t1",
				AgeBucket:         types.Age60to74,
				MissingFieldCount: 5,
				RiskCategoryHint:  "high",
			},
			wantScore:  100,
			wantReason: "senior age bracket; many missing profile fields; flagged high risk",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.record)
			if got.RiskScore != tt.wantScore {
				t.Errorf("score = %d, want %d", got.RiskScore, tt.wantScore)
			}
			if got.RiskReason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.RiskReason, tt.wantReason)
			}
			if got.Source != types.SourceFallback {
				t.Errorf("source = %q, want fallback", got.Source)
			}
			if got.SubjectID != tt.record.SubjectID {
				t.Errorf("subject = %q, want %q", got.SubjectID, tt.record.SubjectID)
			}
		})
	}
}

func TestDeterministicScorer_Pure(t *testing.T) {
	scorer := DeterministicScorer{}
	record := types.FeatureRecord{
		SubjectID:          "t1",
		SensitiveFieldHash: "abc123",
		AgeBucket:          types.Age60to74,
		MissingFieldCount:  1,
		RiskCategoryHint:   "high",
	}
	first := scorer.Score(record)
	for i := 0; i < 50; i++ {
		if got := scorer.Score(record); got != first {
			t.Fatalf("call %d diverged: %+v != %+v", i, got, first)
		}
	}
}

func TestDeterministicScorer_ClampsAt100(t *testing.T) {
	got := DeterministicScorer{}.Score(types.FeatureRecord{
		AgeBucket:         types.Age75Plus,
		MissingFieldCount: 10,
		RiskCategoryHint:  "high",
	})
	if got.RiskScore != 100 {
		t.Fatalf("expected clamp to 100, got %d", got.RiskScore)
	}
}
