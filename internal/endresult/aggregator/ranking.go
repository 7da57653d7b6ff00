package aggregator

import "sort"

// member is one contender for seats within a ranking scope. order is its
// position in the configuration and breaks display ties.
type member[K comparable] struct {
	key      K
	votes    int
	eligible bool
	order    int
}

// placement is where a member ended up against the seat cutoff.
type placement struct {
	rank      int
	groupFrom int
	groupTo   int
	eligible  bool
	// required marks a tie group straddling the cutoff.
	required bool
	// decided marks a required member whose group carries a valid lot decision.
	decided  bool
	seated   bool
	resolved bool
}

// place ranks members by votes using competition ranking. A tie group
// occupying ranks [from, to] needs a lot decision when from <= cutoff < to;
// the decision applies only when it gives every member of the group a
// distinct rank within [from, to].
func place[K comparable](members []member[K], cutoff int, decisions map[K]int) []placement {
	byVotes := make(map[int][]int, len(members))
	for i, m := range members {
		byVotes[m.votes] = append(byVotes[m.votes], i)
	}

	out := make([]placement, len(members))
	validity := make(map[int]bool, len(byVotes))
	for i, m := range members {
		from := 1
		for _, o := range members {
			if o.votes > m.votes {
				from++
			}
		}
		group := byVotes[m.votes]
		p := placement{rank: from, groupFrom: from, groupTo: from + len(group) - 1, eligible: m.eligible}
		switch {
		case !m.eligible:
			p.resolved = true
		case p.groupTo <= cutoff:
			p.seated, p.resolved = true, true
		case from > cutoff:
			p.resolved = true
		default:
			p.required = true
			valid, seen := validity[m.votes]
			if !seen {
				keys := make([]K, len(group))
				for j, idx := range group {
					keys[j] = members[idx].key
				}
				valid = validGroupDecision(keys, p.groupFrom, p.groupTo, decisions)
				validity[m.votes] = valid
			}
			if valid {
				p.decided, p.resolved = true, true
				p.rank = decisions[m.key]
				p.seated = p.rank <= cutoff
			}
		}
		out[i] = p
	}
	return out
}

// validGroupDecision reports whether decisions assign each key a distinct
// rank within [from, to].
func validGroupDecision[K comparable](keys []K, from, to int, decisions map[K]int) bool {
	used := make(map[int]bool, len(keys))
	for _, k := range keys {
		rank, ok := decisions[k]
		if !ok || rank < from || rank > to || used[rank] {
			return false
		}
		used[rank] = true
	}
	return true
}

// ordered returns member indexes sorted by rank, then configuration order.
func ordered[K comparable](members []member[K], placements []placement) []int {
	idx := make([]int, len(members))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := placements[idx[a]], placements[idx[b]]
		if pa.rank != pb.rank {
			return pa.rank < pb.rank
		}
		return members[idx[a]].order < members[idx[b]].order
	})
	return idx
}

func countEligible[K comparable](members []member[K]) int {
	n := 0
	for _, m := range members {
		if m.eligible {
			n++
		}
	}
	return n
}
