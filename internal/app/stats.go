package app

import (
	"strconv"
	"strings"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// walkableMinutes is the walk-time cutoff for the "within walking distance"
// stat.
const walkableMinutes = 15

// Summarize computes shortlist statistics over a result set. An empty result
// set yields the zero value.
func Summarize(results []domain.NearbyResult) domain.SearchStats {
	st := domain.SearchStats{Total: len(results)}
	if st.Total == 0 {
		return st
	}
	for _, r := range results {
		if min, ok := ParseDurationMinutes(r.Travel.Walk); ok && min <= walkableMinutes {
			st.WalkableCount++
		}
		if r.CWELCC {
			st.CWELCCCount++
		}
		if r.Subsidy {
			st.SubsidyCount++
		}
		st.TotalGroupSpace += r.GroupCapacity
	}
	st.CWELCCPercent = percent(st.CWELCCCount, st.Total)
	st.SubsidyPercent = percent(st.SubsidyCount, st.Total)
	return st
}

// ParseDurationMinutes converts provider duration strings like "15 mins" or
// "1 hour 5 mins" to whole minutes. Returns ok=false for "N/A", empty input,
// or anything unparseable.
func ParseDurationMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}

	total := 0
	if i := strings.Index(s, "hour"); i >= 0 {
		h, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil {
			return 0, false
		}
		total += h * 60
		s = s[i:]
		if j := strings.IndexAny(s, "0123456789"); j >= 0 {
			s = s[j:]
		} else {
			s = ""
		}
	}
	if i := strings.Index(s, "min"); i >= 0 {
		fields := strings.Fields(s[:i])
		if len(fields) == 0 {
			return 0, false
		}
		m, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return 0, false
		}
		total += m
	}
	if total == 0 {
		return 0, false
	}
	return total, true
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(n)/float64(total)*100 + 0.5)
}
