// Package ledger implements the tamper-evident audit ledger. Every mutating
// action in the system is recorded as an immutable entry whose hash covers
// the previous entry's hash, forming a chain in which deleting, reordering,
// or substituting any entry is detectable by a verification walk.
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TravelOpsHQ/travelcore-go/fingerprint"
)

// GenesisHash is the prev_hash sentinel carried by the first entry of a chain.
var GenesisHash = strings.Repeat("0", 64)

// Entry is one link of the audit chain. Entries are write-once; nothing in
// this package mutates or deletes an entry after Append persists it.
type Entry struct {
	ID          string         `json:"id"`
	EntityType  string         `json:"entityType"`
	EntityID    string         `json:"entityId"`
	Action      string         `json:"action"`
	Payload     map[string]any `json:"payload,omitempty"`
	PayloadHash string         `json:"payloadHash"`
	PrevHash    string         `json:"prevHash"`
	Hash        string         `json:"hash"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// HashPayload serializes an opaque payload and hashes it. Map keys are
// sorted by encoding/json, so equal payloads always hash equal.
func HashPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit payload: %w", err)
	}
	return fingerprint.Sum(raw), nil
}

// chainHash computes an entry's own hash from the chain link, the payload
// hash, and the append timestamp.
func chainHash(prevHash, payloadHash string, createdAt time.Time) string {
	material := fmt.Sprintf("%s|%s|%s", prevHash, payloadHash, createdAt.UTC().Format(time.RFC3339Nano))
	return fingerprint.Sum([]byte(material))
}
