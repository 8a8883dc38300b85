package jsontree

// UniqueString is one distinct leaf value after deduplication. Path is the
// path of the first occurrence in traversal order; Occurrences indexes every
// occurrence carrying this exact value.
type UniqueString struct {
	Path        []string
	Value       string
	Occurrences []int
}

// Deduplicate groups occurrences by exact value equality (case-sensitive, no
// normalization). The result is an exact partition of the occurrence index
// set, in first-seen order, which is what bounds backend calls to the number
// of distinct strings.
func Deduplicate(occurrences []Occurrence) []UniqueString {
	byValue := make(map[string]int)
	uniques := make([]UniqueString, 0)

	for i, occ := range occurrences {
		if idx, ok := byValue[occ.Value]; ok {
			uniques[idx].Occurrences = append(uniques[idx].Occurrences, i)
			continue
		}
		byValue[occ.Value] = len(uniques)
		uniques = append(uniques, UniqueString{
			Path:        occ.Path,
			Value:       occ.Value,
			Occurrences: []int{i},
		})
	}
	return uniques
}
