package application

import (
	"strconv"
	"strings"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// conclusionGroup counts the checks that share a summary adjective.
type conclusionGroup struct {
	adjective string
	count     int
}

// groupByAdjective buckets checks by Conclusion.Adjective, keeping the order
// in which each adjective is first seen.
func groupByAdjective(checks []model.CheckResult) []conclusionGroup {
	var groups []conclusionGroup
	index := make(map[string]int)

	for _, c := range checks {
		adj := c.Conclusion.Adjective()
		if i, ok := index[adj]; ok {
			groups[i].count++
			continue
		}
		index[adj] = len(groups)
		groups = append(groups, conclusionGroup{adjective: adj, count: 1})
	}

	return groups
}

// Summarize renders a human-readable summary of a check list, e.g.
// "2 successful checks" or "1 successful, and 1 failed checks".
// An empty list yields an empty string.
func Summarize(checks []model.CheckResult) string {
	groups := groupByAdjective(checks)

	switch len(groups) {
	case 0:
		return ""
	case 1:
		g := groups[0]
		noun := "check"
		if g.count > 1 {
			noun = "checks"
		}
		return strconv.Itoa(g.count) + " " + g.adjective + " " + noun
	}

	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.Itoa(g.count) + " " + g.adjective
	}
	last := len(parts) - 1
	parts[last] = "and " + parts[last]

	return strings.Join(parts, ", ") + " checks"
}
