package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// RingInfo is the ring perception result for a graph.  For every bond that
// lies on a cycle the smallest cycle through it is recorded; duplicate cycles
// are kept once.  The resulting set is what ring-membership and ring-size
// queries are answered from.
type RingInfo struct {
	rings      [][]int // atom indices in cycle order
	atomRings  [][]int // ring indices per atom
	atomRingBN []int   // ring bonds per atom
	bondInRing []bool
}

// NumRings returns the number of perceived rings.
func (r *RingInfo) NumRings() int { return len(r.rings) }

// Ring returns the atoms of ring i in cycle order.
func (r *RingInfo) Ring(i int) []int { return r.rings[i] }

// AtomRingCount returns how many perceived rings contain atom a.
func (r *RingInfo) AtomRingCount(a int) int { return len(r.atomRings[a]) }

// InRing reports whether atom a lies on any ring.
func (r *RingInfo) InRing(a int) bool { return len(r.atomRings[a]) > 0 }

// InRingOfSize reports whether atom a lies on a perceived ring of n atoms.
func (r *RingInfo) InRingOfSize(a, n int) bool {
	for _, ri := range r.atomRings[a] {
		if len(r.rings[ri]) == n {
			return true
		}
	}
	return false
}

// SmallestRingSize returns the size of the smallest ring containing atom a, or
// 0 when a is acyclic.
func (r *RingInfo) SmallestRingSize(a int) int {
	min := 0
	for _, ri := range r.atomRings[a] {
		if n := len(r.rings[ri]); min == 0 || n < min {
			min = n
		}
	}
	return min
}

// RingBondCount returns the number of ring bonds touching atom a.
func (r *RingInfo) RingBondCount(a int) int { return r.atomRingBN[a] }

// BondInRing reports whether bond b lies on a cycle.
func (r *RingInfo) BondInRing(b int) bool { return r.bondInRing[b] }

func perceiveRings(g *Graph) *RingInfo {
	n := g.NumAtoms()
	info := &RingInfo{
		atomRings:  make([][]int, n),
		atomRingBN: make([]int, n),
		bondInRing: make([]bool, g.NumBonds()),
	}

	seen := make(map[string]struct{})
	prevAtom := make([]int, n)
	prevBond := make([]int, n)
	for bi := range g.bonds {
		b := &g.bonds[bi]
		path, ok := shortestPathAvoiding(g, b.Source, b.Target, bi, prevAtom, prevBond)
		if !ok {
			continue
		}
		info.bondInRing[bi] = true

		key := ringKey(append(path.bonds, bi))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		idx := len(info.rings)
		info.rings = append(info.rings, path.atoms)
		for _, a := range path.atoms {
			info.atomRings[a] = append(info.atomRings[a], idx)
		}
	}

	for bi, in := range info.bondInRing {
		if in {
			info.atomRingBN[g.bonds[bi].Source]++
			info.atomRingBN[g.bonds[bi].Target]++
		}
	}
	return info
}

type ringPath struct {
	atoms []int
	bonds []int
}

// shortestPathAvoiding runs a breadth-first search from src to dst that never
// crosses bond skip.  Neighbors are expanded in incident order so the result is
// deterministic.
func shortestPathAvoiding(g *Graph, src, dst, skip int, prevAtom, prevBond []int) (ringPath, bool) {
	for i := range prevAtom {
		prevAtom[i] = -2
	}
	prevAtom[src] = -1
	queue := []int{src}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if a == dst {
			break
		}
		for _, bi := range g.incident[a] {
			if bi == skip {
				continue
			}
			nb := g.bonds[bi].Other(a)
			if prevAtom[nb] != -2 {
				continue
			}
			prevAtom[nb] = a
			prevBond[nb] = bi
			queue = append(queue, nb)
		}
	}
	if prevAtom[dst] == -2 {
		return ringPath{}, false
	}
	var p ringPath
	for a := dst; a != -1; a = prevAtom[a] {
		p.atoms = append(p.atoms, a)
		if prevAtom[a] != -1 {
			p.bonds = append(p.bonds, prevBond[a])
		}
	}
	return p, true
}

func ringKey(bonds []int) string {
	sorted := append([]int(nil), bonds...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, b := range sorted {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, ",")
}

//Personal.AI order the ending
