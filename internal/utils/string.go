package utils

// FindClosestString returns the candidate with the smallest edit distance to s,
// ok is false if no candidate is within maxDistance.
func FindClosestString(candidates []string, s string, maxDistance int) (closest string, distance int, ok bool) {
	distance = maxDistance + 1

	for _, candidate := range candidates {
		d := levenshteinDistance(candidate, s)
		if d < distance {
			closest, distance = candidate, d
		}
	}

	if distance > maxDistance {
		return "", -1, false
	}
	return closest, distance, true
}

func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
