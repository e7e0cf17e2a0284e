package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// WeaknessKind discriminates the shape a recorded weakness value takes.
// Attempts written by older clients stored a single label; newer clients
// store a list. Absent means the attempt carried no weakness signal.
type WeaknessKind int

const (
	WeaknessAbsent WeaknessKind = iota
	WeaknessSingle
	WeaknessMultiple
)

// WeaknessValue is the tagged union over the heterogeneous weakness column:
// a single label, a list of labels, or nothing.
type WeaknessValue struct {
	Kind   WeaknessKind
	Single string
	Labels []string
}

// WeaknessRecord is one lesson attempt's weakness signal, in record order.
type WeaknessRecord struct {
	Value WeaknessValue
}

// ParseWeaknessValue decodes the raw JSON column value into the tagged union.
// NULL, JSON null, a JSON string, and a JSON array of strings are all legal;
// anything else is a data error.
func ParseWeaknessValue(raw []byte) (WeaknessValue, error) {
	if len(raw) == 0 {
		return WeaknessValue{Kind: WeaknessAbsent}, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return WeaknessValue{Kind: WeaknessAbsent}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var labels []string
		if err := json.Unmarshal(raw, &labels); err != nil {
			return WeaknessValue{}, eris.Wrap(err, "model: parse weakness list")
		}
		return WeaknessValue{Kind: WeaknessMultiple, Labels: labels}, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return WeaknessValue{}, eris.Wrap(err, "model: parse weakness label")
	}
	return WeaknessValue{Kind: WeaknessSingle, Single: single}, nil
}

// FlattenWeaknesses joins every weakness label across records with newlines,
// preserving record order. Absent values contribute nothing.
func FlattenWeaknesses(records []WeaknessRecord) string {
	var lines []string
	for _, r := range records {
		switch r.Value.Kind {
		case WeaknessSingle:
			lines = append(lines, r.Value.Single)
		case WeaknessMultiple:
			lines = append(lines, r.Value.Labels...)
		}
	}
	return strings.Join(lines, "\n")
}
