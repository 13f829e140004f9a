// Package fingerprint provides the deterministic content hashes used as
// score-cache keys and as the one-way anonymization of sensitive identifiers.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/TravelOpsHQ/travelcore-go/types"
)

// Record derives the cache fingerprint for a feature record. The fields are
// joined in a fixed order so two logically identical records always map to
// the same fingerprint regardless of how the caller assembled them.
func Record(f types.FeatureRecord) string {
	payload := fmt.Sprintf("%s|%s|%s|%d|%s",
		f.SubjectID, f.SensitiveFieldHash, f.AgeBucket, f.MissingFieldCount, f.RiskCategoryHint)
	return Sum([]byte(payload))
}

// Identifier hashes a raw sensitive identifier. There is no reversal path;
// equal inputs hash equal, which is all downstream scoring needs.
func Identifier(raw string) string {
	return Sum([]byte(raw))
}

// Sum returns the hex-encoded SHA-256 of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
