package identity

import "sort"

// SeenSet holds every fingerprint observed by a successful run. It only grows.
type SeenSet map[string]struct{}

func NewSeenSet(fps ...string) SeenSet {
	s := make(SeenSet, len(fps))
	for _, fp := range fps {
		s.Add(fp)
	}
	return s
}

func (s SeenSet) Has(fp string) bool {
	_, ok := s[fp]
	return ok
}

func (s SeenSet) Add(fp string) {
	if fp != "" {
		s[fp] = struct{}{}
	}
}

func (s SeenSet) Len() int { return len(s) }

// Union returns a new set with the members of s and fps.
func (s SeenSet) Union(fps ...string) SeenSet {
	out := s.Clone()
	for _, fp := range fps {
		out.Add(fp)
	}
	return out
}

func (s SeenSet) Clone() SeenSet {
	out := make(SeenSet, len(s))
	for fp := range s {
		out[fp] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order, the on-disk order.
func (s SeenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for fp := range s {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}
