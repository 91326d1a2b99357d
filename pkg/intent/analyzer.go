// Package intent derives normalized routing features from raw requests.
package intent

import (
	"sort"
	"strings"

	"github.com/zen-systems/unigate/pkg/schema"
)

// Analyzer classifies requests into task categories and capability
// requirements. Analysis is fully deterministic: the same query and
// context always produce the same features, so identical queries hit
// the cache reliably.
type Analyzer struct {
	table Table
}

// NewAnalyzer creates an analyzer over the given table.
func NewAnalyzer(table Table) *Analyzer {
	return &Analyzer{table: table}
}

// Analyze extracts IntentFeatures from a request. An empty or
// unclassifiable query yields CategoryUnknown with no required
// capabilities; it never fails, so some platform is always selectable.
func (a *Analyzer) Analyze(req *schema.Request) *schema.IntentFeatures {
	hint := req.Hint
	if hint == "" {
		hint = schema.HintBalanced
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return &schema.IntentFeatures{
			Category:     schema.CategoryUnknown,
			Capabilities: []string{},
			Complexity:   0,
			Hint:         hint,
		}
	}

	category, matched := a.classify(query)
	caps := a.capabilities(category, matched)

	return &schema.IntentFeatures{
		Category:     category,
		Capabilities: caps,
		Complexity:   complexity(query),
		Hint:         hint,
	}
}

// classify counts word-boundary trigger matches per category and picks
// the category with the most. Ties break by category declaration order
// so classification is reproducible.
func (a *Analyzer) classify(query string) (schema.TaskCategory, []string) {
	best := schema.CategoryUnknown
	bestScore := 0
	var bestMatched []string

	for _, category := range schema.Categories() {
		triggers, ok := a.table.Triggers[category]
		if !ok {
			continue
		}
		var matched []string
		for _, trig := range triggers {
			if containsTrigger(query, strings.ToLower(trig)) {
				matched = append(matched, strings.ToLower(trig))
			}
		}
		if len(matched) > bestScore {
			best = category
			bestScore = len(matched)
			bestMatched = matched
		}
	}
	return best, bestMatched
}

func (a *Analyzer) capabilities(category schema.TaskCategory, matched []string) []string {
	set := map[string]struct{}{}
	for _, tag := range a.table.Capabilities[category] {
		set[tag] = struct{}{}
	}
	for _, trig := range matched {
		if tag, ok := a.table.ExtraTags[trig]; ok {
			set[tag] = struct{}{}
		}
	}

	caps := make([]string, 0, len(set))
	for tag := range set {
		caps = append(caps, tag)
	}
	sort.Strings(caps)
	return caps
}

// complexity estimates request complexity in [0,1] from query length and
// effort markers. Coarse on purpose; it only nudges cache TTLs and logs.
func complexity(query string) float64 {
	words := len(strings.Fields(query))
	score := 0.1 + float64(words)/120.0

	markers := []string{"analyze", "comprehensive", "detailed", "step by step", "entire", "all of", "multi"}
	for _, m := range markers {
		if strings.Contains(query, m) {
			score += 0.15
			break
		}
	}
	if containsDigit(query) {
		score += 0.05
	}

	if score > 1 {
		return 1
	}
	return score
}

func containsDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}

// containsTrigger checks if the query contains the trigger phrase at a
// word boundary on both sides.
func containsTrigger(query, trigger string) bool {
	idx := strings.Index(query, trigger)
	if idx == -1 {
		return false
	}
	if idx > 0 && isWordChar(query[idx-1]) {
		return false
	}
	end := idx + len(trigger)
	if end < len(query) && isWordChar(query[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
