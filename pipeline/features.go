package pipeline

import (
	"time"

	"github.com/TravelOpsHQ/travelcore-go/fingerprint"
	"github.com/TravelOpsHQ/travelcore-go/types"
)

// DeriveFeatures maps travelers to their anonymized feature records. The
// raw document number is hashed here; nothing downstream of this function
// ever sees it in cleartext.
func DeriveFeatures(travelers []types.Traveler) []types.FeatureRecord {
	out := make([]types.FeatureRecord, len(travelers))
	for i, tr := range travelers {
		out[i] = deriveFeature(tr, time.Now().UTC())
	}
	return out
}

func deriveFeature(tr types.Traveler, now time.Time) types.FeatureRecord {
	record := types.FeatureRecord{
		SubjectID:         tr.ID,
		MissingFieldCount: countMissing(tr),
		RiskCategoryHint:  tr.RiskCategoryHint,
	}
	if tr.DocumentNumber != "" {
		record.SensitiveFieldHash = fingerprint.Identifier(tr.DocumentNumber)
	}
	if !tr.DateOfBirth.IsZero() {
		record.AgeBucket = types.BucketForAge(yearsBetween(tr.DateOfBirth, now))
	}
	return record
}

func countMissing(tr types.Traveler) int {
	missing := 0
	if tr.FullName == "" {
		missing++
	}
	if tr.DocumentNumber == "" {
		missing++
	}
	if tr.DateOfBirth.IsZero() {
		missing++
	}
	if tr.Nationality == "" {
		missing++
	}
	if tr.ContactEmail == "" {
		missing++
	}
	return missing
}

func yearsBetween(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}
