package quotes

// Gap is an inclusive sub-range of bar times missing from the store.
type Gap struct {
	Start int64
	End   int64
}

// FindGaps computes the missing sub-ranges of [t0, t1] given the observed
// bar times, ascending. Both gap endpoints are inclusive, matching the
// fetcher's inclusive-at-both-ends contract.
func FindGaps(times []int64, t0, t1, step int64) []Gap {
	if len(times) == 0 {
		return []Gap{{Start: t0, End: t1}}
	}

	var gaps []Gap

	if times[0] > t0 {
		gaps = append(gaps, Gap{Start: t0, End: times[0] - step})
	}

	for i := 0; i+1 < len(times); i++ {
		if times[i+1] > times[i]+step {
			gaps = append(gaps, Gap{Start: times[i] + step, End: times[i+1] - step})
		}
	}

	if last := times[len(times)-1]; last+step <= t1 {
		gaps = append(gaps, Gap{Start: last + step, End: t1})
	}

	return gaps
}
