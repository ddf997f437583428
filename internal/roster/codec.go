package roster

import (
	"encoding/json"
	"strings"
)

// ========================= Payload Codec =========================
// The roster and composition travel as JSON strings on the unit record.
// Decoding is explicit about the three states a payload can be in instead
// of collapsing malformed data into a silent empty result: callers decide
// what Absent vs Malformed means for them (in practice both trigger
// baseline synthesis, but Malformed is worth logging).

type DecodeState int

const (
	// Absent: the payload string is empty.
	Absent DecodeState = iota
	// Parsed: the payload decoded cleanly.
	Parsed
	// Malformed: the payload is non-empty but does not decode.
	Malformed
)

func (s DecodeState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Parsed:
		return "parsed"
	default:
		return "malformed"
	}
}

// DecodedModels is the result of decoding a serialized roster.
type DecodedModels struct {
	State  DecodeState
	Models []ModelState
	Err    error
}

// DecodeModels parses the serialized per-model roster. Role tags are
// normalized and wound values clamped to their own bounds so a hand-edited
// payload cannot smuggle in CurrentWounds > MaxWounds.
func DecodeModels(raw string) DecodedModels {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DecodedModels{State: Absent}
	}
	var models []ModelState
	if err := json.Unmarshal([]byte(raw), &models); err != nil {
		return DecodedModels{State: Malformed, Err: err}
	}
	for i := range models {
		models[i].Role = normalizeRole(models[i].Role)
		if models[i].MaxWounds < 1 {
			models[i].MaxWounds = 1
		}
		models[i].CurrentWounds = clamp(0, models[i].MaxWounds, models[i].CurrentWounds)
	}
	return DecodedModels{State: Parsed, Models: models}
}

// EncodeModels serializes a roster for storage on the unit record.
func EncodeModels(models []ModelState) string {
	if models == nil {
		models = []ModelState{}
	}
	b, _ := json.Marshal(models)
	return string(b)
}

// DecodedComposition is the result of decoding a serialized template.
type DecodedComposition struct {
	State   DecodeState
	Entries []RoleComposition
	Err     error
}

// DecodeComposition parses the serialized template makeup. Entries with a
// non-positive count are dropped; a payload that decodes to zero usable
// entries still reports Parsed and callers fall back to the uniform
// baseline.
func DecodeComposition(raw string) DecodedComposition {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DecodedComposition{State: Absent}
	}
	var entries []RoleComposition
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return DecodedComposition{State: Malformed, Err: err}
	}
	out := make([]RoleComposition, 0, len(entries))
	for _, e := range entries {
		if e.Count <= 0 {
			continue
		}
		e.Role = normalizeRole(e.Role)
		out = append(out, e)
	}
	return DecodedComposition{State: Parsed, Entries: out}
}

// EncodeComposition serializes a template makeup.
func EncodeComposition(entries []RoleComposition) string {
	if entries == nil {
		entries = []RoleComposition{}
	}
	b, _ := json.Marshal(entries)
	return string(b)
}
