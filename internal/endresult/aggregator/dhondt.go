package aggregator

import "sort"

type quotient struct {
	list    int
	votes   int
	divisor int
}

func (q quotient) greater(o quotient) bool {
	return int64(q.votes)*int64(o.divisor) > int64(o.votes)*int64(q.divisor)
}

func (q quotient) equal(o quotient) bool {
	return int64(q.votes)*int64(o.divisor) == int64(o.votes)*int64(q.divisor)
}

// allocation is the outcome of a highest averages distribution.
type allocation struct {
	// seats are the seats each list won outright.
	seats []int
	// tied lists share the last quotient value for fewer seats than lists.
	tied []int
	// tiedFrom is the seat rank of the first tied quotient.
	tiedFrom int
}

func (a allocation) hasTie() bool {
	return len(a.tied) > 0
}

// dhondt distributes mandates over lists by the D'Hondt method: every
// list contributes the quotients votes/1, votes/2, ... and the mandates go
// to the highest quotients. Lists without votes win nothing.
func dhondt(votes []int, mandates int) allocation {
	a := allocation{seats: make([]int, len(votes))}
	if mandates <= 0 {
		return a
	}

	var qs []quotient
	for list, v := range votes {
		if v <= 0 {
			continue
		}
		for d := 1; d <= mandates; d++ {
			qs = append(qs, quotient{list: list, votes: v, divisor: d})
		}
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].equal(qs[j]) {
			return qs[i].list < qs[j].list
		}
		return qs[i].greater(qs[j])
	})

	if len(qs) <= mandates {
		for _, q := range qs {
			a.seats[q.list]++
		}
		return a
	}

	last := qs[mandates-1]
	above := 0
	var tied []int
	for _, q := range qs {
		switch {
		case q.greater(last):
			a.seats[q.list]++
			above++
		case q.equal(last):
			tied = append(tied, q.list)
		}
	}
	open := mandates - above
	if len(tied) == open {
		for _, list := range tied {
			a.seats[list]++
		}
		return a
	}
	a.tied = tied
	a.tiedFrom = above + 1
	return a
}
