package agents

import (
	"fmt"
	"strings"
)

// Roster is the ordered seat-to-strategy assignment of one game.
type Roster []Kind

// Shuffler permutes a sequence in place.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Picker draws an index in [0, n).
type Picker interface {
	Intn(n int) int
}

// Shuffled returns a uniformly permuted copy of r.
func (r Roster) Shuffled(rng Shuffler) Roster {
	out := make(Roster, len(r))
	copy(out, r)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Counts returns how many seats play each strategy.
func (r Roster) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, k := range r {
		counts[k]++
	}
	return counts
}

// String renders the roster as "greedy,opportunistic,defector".
func (r Roster) String() string {
	names := make([]string, len(r))
	for i, k := range r {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

// ParseRoster is the inverse of Roster.String.
func ParseRoster(s string) (Roster, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	r := make(Roster, 0, len(parts))
	for _, p := range parts {
		k, err := ParseKind(p)
		if err != nil {
			return nil, err
		}
		r = append(r, k)
	}
	return r, nil
}

// BuildRoster seats one Greedy agent and fills the remaining numAgents-1 seats
// with strategies drawn uniformly from pool.
func BuildRoster(numAgents int, pool []Kind, rng Picker) (Roster, error) {
	if numAgents < 1 {
		return nil, fmt.Errorf("roster needs at least one seat, got %d", numAgents)
	}
	if numAgents > 1 && len(pool) == 0 {
		return nil, fmt.Errorf("roster pool is empty")
	}
	r := make(Roster, 0, numAgents)
	r = append(r, Greedy)
	for i := 1; i < numAgents; i++ {
		if len(pool) == 1 {
			r = append(r, pool[0])
			continue
		}
		r = append(r, pool[rng.Intn(len(pool))])
	}
	return r, nil
}
