package beacon

import "sort"

// Group is the set of players sharing one code.
type Group struct {
	Code    string
	Members []Subject
}

// GroupByCode buckets subjects by share code. Subjects without a code are
// skipped and buckets with fewer than two members are dropped. Codes are
// returned in sorted order and members keep their input order. When
// maxGroupSize > 0 larger buckets are cut to their first maxGroupSize
// members.
func GroupByCode(subjects []Subject, maxGroupSize int) []Group {
	buckets := make(map[string][]Subject)
	for _, s := range subjects {
		if s.Code == "" {
			continue
		}
		buckets[s.Code] = append(buckets[s.Code], s)
	}

	codes := make([]string, 0, len(buckets))
	for code := range buckets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	groups := make([]Group, 0, len(codes))
	for _, code := range codes {
		members := buckets[code]
		if maxGroupSize > 0 && len(members) > maxGroupSize {
			members = members[:maxGroupSize]
		}
		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group{Code: code, Members: members})
	}
	return groups
}
