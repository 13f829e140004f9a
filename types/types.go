package types

import "time"

// ScoreSource tags which path produced a risk assessment.
type ScoreSource string

const (
	SourceCache    ScoreSource = "cache"
	SourceOracle   ScoreSource = "oracle"
	SourceFallback ScoreSource = "fallback"
)

type AgeBucket string

const (
	AgeUnder18 AgeBucket = "under-18"
	Age18to29  AgeBucket = "18-29"
	Age30to44  AgeBucket = "30-44"
	Age45to59  AgeBucket = "45-59"
	Age60to74  AgeBucket = "60-74"
	Age75Plus  AgeBucket = "75-plus"
)

// AgeBuckets lists all buckets from youngest to oldest.
var AgeBuckets = []AgeBucket{
	AgeUnder18,
	Age18to29,
	Age30to44,
	Age45to59,
	Age60to74,
	Age75Plus,
}

// SeniorBracket reports whether the bucket is one of the two oldest.
func (b AgeBucket) SeniorBracket() bool {
	return b == Age60to74 || b == Age75Plus
}

func BucketForAge(age int) AgeBucket {
	switch {
	case age < 18:
		return AgeUnder18
	case age < 30:
		return Age18to29
	case age < 45:
		return Age30to44
	case age < 60:
		return Age45to59
	case age < 75:
		return Age60to74
	default:
		return Age75Plus
	}
}

// Traveler is the scan subject as the record store holds it. Raw identifying
// values never leave the pipeline; scoring only ever sees a FeatureRecord.
type Traveler struct {
	ID               string    `json:"id"`
	GroupID          string    `json:"groupId,omitempty"`
	FullName         string    `json:"fullName,omitempty"`
	DocumentNumber   string    `json:"documentNumber,omitempty"`
	DateOfBirth      time.Time `json:"dateOfBirth,omitzero"`
	Nationality      string    `json:"nationality,omitempty"`
	ContactEmail     string    `json:"contactEmail,omitempty"`
	RiskCategoryHint string    `json:"riskCategoryHint,omitempty"`
}

// FeatureRecord is the anonymized feature view of a traveler.
// SensitiveFieldHash is a one-way hash of the raw document number.
type FeatureRecord struct {
	SubjectID          string    `json:"subjectId"`
	SensitiveFieldHash string    `json:"sensitiveFieldHash"`
	AgeBucket          AgeBucket `json:"ageBucket"`
	MissingFieldCount  int       `json:"missingFieldCount"`
	RiskCategoryHint   string    `json:"riskCategoryHint,omitempty"`
}

type RiskAssessment struct {
	SubjectID  string      `json:"subjectId"`
	RiskScore  int         `json:"riskScore"`
	RiskReason string      `json:"riskReason"`
	Source     ScoreSource `json:"source,omitempty"`
}
