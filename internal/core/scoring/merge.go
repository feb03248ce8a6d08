package scoring

import (
	"fmt"
	"math"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// EndpointEpsilon is the per-axis tolerance, in degrees, for two endpoints to
// count as the same node.
const EndpointEpsilon = 1e-5

// MergeByName joins fragments that share a name and touch end to end.
//
// Groups keep first-seen order. A group with one fragment is returned as is.
// Larger groups are chained greedily: each chain starts from the first unused
// fragment and absorbs the first unused fragment (in index order) whose start
// or end touches either end of the chain, until nothing more attaches. Chains
// get synthesized ids and the unweighted mean of their fragments' scores.
// The reconstruction is valid but not unique.
func MergeByName(fragments []domain.Street) []domain.Street {
	if len(fragments) == 0 {
		return nil
	}

	var order []string
	groups := make(map[string][]domain.Street)
	for _, f := range fragments {
		name := f.Name
		if name == "" {
			name = domain.UnnamedStreet
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], f)
	}

	merged := make([]domain.Street, 0, len(fragments))
	for _, name := range order {
		merged = append(merged, mergeGroup(name, groups[name])...)
	}
	return merged
}

func mergeGroup(name string, group []domain.Street) []domain.Street {
	if len(group) == 1 {
		return group
	}

	var out []domain.Street
	used := make([]bool, len(group))

	for i := range group {
		if used[i] {
			continue
		}
		used[i] = true

		chain := append([]domain.GeoPoint(nil), group[i].Coordinates...)
		scoreSum := group[i].Score
		members := []int{i}

		for {
			j, next := extendChain(chain, group, used)
			if j < 0 {
				break
			}
			chain = next
			used[j] = true
			scoreSum += group[j].Score
			members = append(members, j)
		}

		out = append(out, domain.Street{
			ID:          fmt.Sprintf("merged-%s-%d", name, len(out)),
			Name:        name,
			Coordinates: chain,
			Score:       scoreSum / float64(len(members)),
			Samples:     unionSamples(group, members),
		})
	}
	return out
}

// extendChain finds the first unused fragment that attaches to either end of
// chain and returns its index with the extended chain, or -1.
func extendChain(chain []domain.GeoPoint, group []domain.Street, used []bool) (int, []domain.GeoPoint) {
	first, last := chain[0], chain[len(chain)-1]

	for j, seg := range group {
		if used[j] {
			continue
		}
		pts := seg.Coordinates
		if len(pts) < 2 {
			continue
		}
		segFirst, segLast := pts[0], pts[len(pts)-1]

		switch {
		case samePoint(last, segFirst):
			return j, append(chain, pts[1:]...)
		case samePoint(last, segLast):
			return j, append(chain, reversed(pts[:len(pts)-1])...)
		case samePoint(first, segLast):
			return j, append(append([]domain.GeoPoint(nil), pts[:len(pts)-1]...), chain...)
		case samePoint(first, segFirst):
			return j, append(reversed(pts[1:]), chain...)
		}
	}
	return -1, chain
}

func samePoint(a, b domain.GeoPoint) bool {
	return math.Abs(a.Lat-b.Lat) < EndpointEpsilon && math.Abs(a.Lon-b.Lon) < EndpointEpsilon
}

func reversed(pts []domain.GeoPoint) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// unionSamples collects the samples of the chained fragments, dropping
// samples that sat near more than one of them.
func unionSamples(group []domain.Street, members []int) []domain.PointSample {
	seen := make(map[domain.PointSample]struct{})
	var out []domain.PointSample
	for _, m := range members {
		for _, s := range group[m].Samples {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
