// Package scorer ranks candidate platforms for a routing decision.
package scorer

import (
	"sort"

	"github.com/zen-systems/unigate/pkg/schema"
)

// Component weights of the final score.
const (
	weightCapability  = 0.40
	weightPerformance = 0.25
	weightEnterprise  = 0.25
	weightCost        = 0.10

	// performancePenalty is applied instead of 0 when a candidate's
	// latency class misses the requirement; a slow platform is still a
	// candidate, just a weak one.
	performancePenalty = 0.3

	// unknownBase is the capability match given to every platform when
	// the category is unknown and no capabilities are required.
	unknownBase = 0.5

	// tieEpsilon is the score margin under which two candidates are
	// considered tied and decided by cost, latency, then id.
	tieEpsilon = 0.02
)

// HealthView exposes the circuit state the scorer needs: whether a
// platform may receive traffic right now.
type HealthView interface {
	Available(id string) bool
}

// Scorer computes weighted match scores against registry profiles.
type Scorer struct {
	health HealthView
}

// New creates a scorer consulting the given health view. A nil view
// treats every candidate as available.
func New(health HealthView) *Scorer {
	return &Scorer{health: health}
}

// Score returns ScoreResults for every available candidate, highest
// first. An empty result means no healthy platform exists and the
// caller must fail the request rather than guess.
//
// Scoring the same features against the same profiles is idempotent:
// the result order is fully deterministic including ties.
func (s *Scorer) Score(features *schema.IntentFeatures, candidates []*schema.PlatformProfile) []schema.ScoreResult {
	results := make([]schema.ScoreResult, 0, len(candidates))
	byID := make(map[string]*schema.PlatformProfile, len(candidates))

	for _, p := range candidates {
		if s.health != nil && !s.health.Available(p.ID) {
			continue
		}
		byID[p.ID] = p

		capMatch := capabilityMatch(features, p)
		perfMatch := performanceMatch(features.Hint, p.Latency)
		entFit := enterpriseFit(p.Tier)
		costFit := costFit(p.Cost)

		results = append(results, schema.ScoreResult{
			PlatformID:  p.ID,
			Score:       weightCapability*capMatch + weightPerformance*perfMatch + weightEnterprise*entFit + weightCost*costFit,
			Capability:  capMatch,
			Performance: perfMatch,
			Enterprise:  entFit,
			CostFit:     costFit,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j], byID)
	})
	return results
}

// less orders i before j. Scores within tieEpsilon fall through to the
// deterministic tie-break: lower cost class, lower latency class, id.
func less(a, b schema.ScoreResult, byID map[string]*schema.PlatformProfile) bool {
	diff := a.Score - b.Score
	if diff > tieEpsilon {
		return true
	}
	if diff < -tieEpsilon {
		return false
	}

	pa, pb := byID[a.PlatformID], byID[b.PlatformID]
	if pa.Cost.Rank() != pb.Cost.Rank() {
		return pa.Cost.Rank() < pb.Cost.Rank()
	}
	if pa.Latency.Rank() != pb.Latency.Rank() {
		return pa.Latency.Rank() < pb.Latency.Rank()
	}
	return pa.ID < pb.ID
}

// capabilityMatch is |required ∩ declared| / |required|, 1.0 when
// nothing is required. Unknown-category requests match every platform
// at a fixed low base so one is always selected.
func capabilityMatch(features *schema.IntentFeatures, p *schema.PlatformProfile) float64 {
	if len(features.Capabilities) == 0 {
		if features.Category == schema.CategoryUnknown {
			return unknownBase
		}
		return 1.0
	}
	matched := 0
	for _, tag := range features.Capabilities {
		if p.HasStrength(tag) {
			matched++
		}
	}
	return float64(matched) / float64(len(features.Capabilities))
}

// performanceMatch is 1.0 when the candidate's latency class meets or
// beats what the hint demands, else the fixed penalty.
func performanceMatch(hint schema.PerformanceHint, latency schema.LatencyClass) float64 {
	if latency.Rank() <= requiredLatency(hint).Rank() {
		return 1.0
	}
	return performancePenalty
}

func requiredLatency(hint schema.PerformanceHint) schema.LatencyClass {
	switch hint {
	case schema.HintFast:
		return schema.LatencyLow
	case schema.HintAccurate:
		return schema.LatencyHigh
	default:
		return schema.LatencyMedium
	}
}

// enterpriseFit maps tier 0-3 onto [0.25, 1.0].
func enterpriseFit(tier int) float64 {
	if tier < 0 {
		tier = 0
	}
	if tier > 3 {
		tier = 3
	}
	return float64(tier+1) / 4.0
}

// costFit rewards cheaper platforms.
func costFit(cost schema.CostClass) float64 {
	switch cost {
	case schema.CostLow:
		return 1.0
	case schema.CostMedium:
		return 0.6
	default:
		return 0.3
	}
}
