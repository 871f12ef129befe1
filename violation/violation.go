package violation

import "sort"

// Violation is one domain reported by one or more backends.
type Violation struct {
	Domain     Domain   `json:"domain"`
	Confidence float64  `json:"confidence"` // 0..1
	Providers  []string `json:"providers"`
	Labels     []string `json:"labels"` // Backend labels that mapped here
}

// List holds at most one Violation per domain once merged.
type List []Violation

// Scores returns the list as a domain to confidence map, keeping the
// highest confidence per domain.
func (l List) Scores() map[string]float64 {
	scores := make(map[string]float64, len(l))
	for _, v := range l {
		k := string(v.Domain)
		if cur, ok := scores[k]; !ok || v.Confidence > cur {
			scores[k] = v.Confidence
		}
	}
	return scores
}

// Flags returns each domain once, in list order.
func (l List) Flags() []string {
	seen := make(map[Domain]struct{}, len(l))
	flags := make([]string, 0, len(l))
	for _, v := range l {
		if _, ok := seen[v.Domain]; ok {
			continue
		}
		seen[v.Domain] = struct{}{}
		flags = append(flags, string(v.Domain))
	}
	return flags
}

// Merge folds lists into one entry per domain, ordered by descending
// confidence and then domain name.
func Merge(lists ...List) List {
	byDomain := make(map[Domain]int)
	var out List
	for _, list := range lists {
		for _, v := range list {
			i, ok := byDomain[v.Domain]
			if !ok {
				byDomain[v.Domain] = len(out)
				out = append(out, Violation{
					Domain:     v.Domain,
					Confidence: v.Confidence,
					Providers:  union(nil, v.Providers),
					Labels:     union(nil, v.Labels),
				})
				continue
			}
			cur := &out[i]
			cur.Confidence = max(cur.Confidence, v.Confidence)
			cur.Providers = union(cur.Providers, v.Providers)
			cur.Labels = union(cur.Labels, v.Labels)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

func union(dst, src []string) []string {
	for _, s := range src {
		dup := false
		for _, d := range dst {
			if d == s {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}
