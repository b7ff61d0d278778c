package agents

import "math"

// Rand is the randomness a strategy may consume.
type Rand interface {
	Float() float64
}

// Decide returns the amount a seat playing kind requests this turn.
// The result is never negative.
func Decide(kind Kind, v View, tuning Tuning, rng Rand) float64 {
	switch kind {
	case Greedy:
		return decideGreedy(v)
	case Cooperative:
		return decideCooperative(v)
	case Random:
		return decideRandom(v, rng)
	case Opportunistic:
		return decideOpportunistic(v, tuning)
	case Defector:
		return decideDefector(v, tuning, rng)
	default:
		return 0
	}
}

func decideGreedy(v View) float64 {
	return math.Max(v.Cap, 0)
}

// decideCooperative takes this seat's share of the interest the pool would earn.
func decideCooperative(v View) float64 {
	if v.NumAgents < 1 {
		return 0
	}
	share := v.Pool * v.InterestRate / float64(v.NumAgents)
	return math.Max(math.Min(share, v.Cap), 0)
}

func decideRandom(v View, rng Rand) float64 {
	return rng.Float() * math.Max(v.Cap, 0)
}

func decideOpportunistic(v View, tuning Tuning) float64 {
	if float64(v.Turn) > float64(v.Horizon)*tuning.OpportunistThreshold {
		return decideGreedy(v)
	}
	return decideCooperative(v)
}

func decideDefector(v View, tuning Tuning, rng Rand) float64 {
	if rng.Float() < tuning.DefectProbability {
		return decideGreedy(v)
	}
	return decideCooperative(v)
}
