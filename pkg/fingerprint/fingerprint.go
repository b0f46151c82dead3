// Package fingerprint computes deterministic identities for catalog
// records so re-ingested payloads can be recognized without field
// comparison.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Record computes the fingerprint of a normalized record: a SHA256 over
// the canonical form of its identity, position, and attributes. Excluded
// attribute names (e.g. retrieval timestamps) do not participate.
func Record(r *models.CatalogRecord, exclude map[string]bool) string {
	var b strings.Builder
	b.WriteString(r.Survey)
	b.WriteByte('|')
	b.WriteString(r.SourceID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.RA, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Dec, 'g', -1, 64))
	b.WriteByte('|')
	if r.PosUncertainty != nil {
		b.WriteString(strconv.FormatFloat(*r.PosUncertainty, 'g', -1, 64))
	}
	b.WriteByte('|')
	if r.QualityFlag != nil {
		b.WriteString(strconv.Itoa(*r.QualityFlag))
	}
	b.WriteByte('|')
	if r.Epoch != nil {
		b.WriteString(strconv.FormatFloat(*r.Epoch, 'g', -1, 64))
	}
	b.WriteByte('|')

	attrs := r.Attributes
	if len(exclude) > 0 && attrs != nil {
		filtered := make(map[string]any, len(attrs))
		for k, v := range attrs {
			if !exclude[k] {
				filtered[k] = v
			}
		}
		attrs = filtered
	}
	canonicalize(&b, attrs)

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// Generate computes a fingerprint over an arbitrary attribute map.
func Generate(data map[string]any) string {
	var b strings.Builder
	canonicalize(&b, data)
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints.
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

// canonicalize writes a deterministic representation: maps with sorted
// keys, arrays in order, primitives as JSON.
func canonicalize(b *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			canonicalize(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalize(b, item)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(v)
		b.Write(raw)
	}
}
