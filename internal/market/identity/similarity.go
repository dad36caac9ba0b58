package identity

// Ratio returns the Ratcliff/Obershelp similarity of a and b: twice the
// number of characters in matching blocks over the total length. Identical
// strings score 1.0, disjoint ones 0.0. Arguments are ordered before
// matching so Ratio(a, b) == Ratio(b, a).
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if b < a {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingChars(ra, rb)) / float64(total)
}

type span struct{ alo, ahi, blo, bhi int }

// matchingChars sums the sizes of the matching blocks: take the longest
// common run, then recurse on what lies left and right of it.
func matchingChars(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b2j, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest run a[i:i+k] == b[j:j+k] inside s. Ties go
// to the smallest i, then the smallest j.
func longestMatch(a []rune, b2j map[rune][]int, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	j2len := map[int]int{}
	for i := s.alo; i < s.ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestk
}
