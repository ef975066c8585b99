// Package redact removes secrets from free text before it is persisted.
//
// Commit messages, session notes and task context all end up in files that are
// re-injected into a future session, so anything that looks like a credential
// is replaced with "REDACTED" on the way in.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Placeholder replaces every detected secret.
const Placeholder = "REDACTED"

// secretPattern matches candidate tokens for the entropy check.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a token to be treated as
// a secret. Identifiers and prose stay well below it; API keys sit above 5.0.
const entropyThreshold = 4.5

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

type span struct{ start, end int }

// String replaces secrets in s with Placeholder. A token is redacted when its
// entropy is above the threshold or when any gitleaks rule matches it.
func String(s string) string {
	if s == "" {
		return s
	}

	var spans []span
	for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(s) {
			spans = append(spans, occurrences(s, f.Secret)...)
		}
	}
	if len(spans) == 0 {
		return s
	}
	return replaceSpans(s, mergeSpans(spans))
}

// Value returns a copy of v with every string redacted, descending into maps
// and slices as produced by encoding/json. Keys ending in "id" are left alone.
func Value(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if skipKey(k) {
				out[k] = child
				continue
			}
			out[k] = Value(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = Value(child)
		}
		return out
	default:
		return v
	}
}

// skipKey excludes identifiers, which are high-entropy by nature.
func skipKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "id") || strings.HasSuffix(lower, "ids") || strings.HasSuffix(lower, "hash")
}

func occurrences(s, secret string) []span {
	if secret == "" {
		return nil
	}
	var out []span
	from := 0
	for {
		idx := strings.Index(s[from:], secret)
		if idx < 0 {
			return out
		}
		start := from + idx
		out = append(out, span{start, start + len(secret)})
		from = start + len(secret)
	}
}

func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start > last.end {
			merged = append(merged, sp)
			continue
		}
		if sp.end > last.end {
			last.end = sp.end
		}
	}
	return merged
}

func replaceSpans(s string, spans []span) string {
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp.start])
		b.WriteString(Placeholder)
		prev = sp.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
