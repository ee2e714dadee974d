package molecule

import (
	"strconv"
	"strings"
)

// WriteSMILES renders g as line notation by depth-first traversal from the
// lowest-indexed atom of each fragment.  The output is valid input for
// ParseSMILES but is not canonical: two equal graphs built in different atom
// orders may render differently.
func WriteSMILES(g *Graph) string {
	w := &smilesWriter{
		g:         g,
		visited:   make([]bool, g.NumAtoms()),
		treeBond:  make([]bool, g.NumBonds()),
		seenBond:  make([]bool, g.NumBonds()),
		children:  make([][]childEdge, g.NumAtoms()),
		ringBonds: make([][]int, g.NumAtoms()),
		labels:    make(map[int]int),
	}
	var sb strings.Builder
	for start := 0; start < g.NumAtoms(); start++ {
		if w.visited[start] {
			continue
		}
		w.classify(start, -1)
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		w.emit(&sb, start, -1)
	}
	return sb.String()
}

type childEdge struct {
	atom, bond int
}

type smilesWriter struct {
	g         *Graph
	visited   []bool
	treeBond  []bool
	seenBond  []bool
	children  [][]childEdge
	ringBonds [][]int
	labels    map[int]int // bond -> open ring label
	inUse     [100]bool
}

// classify builds the traversal tree and collects ring-closure bonds.
func (w *smilesWriter) classify(a, parentBond int) {
	w.visited[a] = true
	for _, bi := range w.g.IncidentBonds(a) {
		if bi == parentBond || w.seenBond[bi] {
			continue
		}
		w.seenBond[bi] = true
		n := w.g.Neighbor(a, bi)
		if w.visited[n] {
			w.ringBonds[n] = append(w.ringBonds[n], bi)
			w.ringBonds[a] = append(w.ringBonds[a], bi)
			continue
		}
		w.treeBond[bi] = true
		w.children[a] = append(w.children[a], childEdge{atom: n, bond: bi})
		w.classify(n, bi)
	}
}

func (w *smilesWriter) emit(sb *strings.Builder, a, viaBond int) {
	if viaBond >= 0 {
		sb.WriteString(w.bondSymbol(viaBond))
	}
	sb.WriteString(w.atomText(a))
	for _, bi := range w.ringBonds[a] {
		if label, open := w.labels[bi]; open {
			delete(w.labels, bi)
			w.inUse[label] = false
			writeRingLabel(sb, label)
			continue
		}
		label := w.allocLabel()
		w.labels[bi] = label
		sb.WriteString(w.bondSymbol(bi))
		writeRingLabel(sb, label)
	}
	kids := w.children[a]
	for i, c := range kids {
		if i < len(kids)-1 {
			sb.WriteByte('(')
			w.emit(sb, c.atom, c.bond)
			sb.WriteByte(')')
			continue
		}
		w.emit(sb, c.atom, c.bond)
	}
}

func (w *smilesWriter) allocLabel() int {
	for l := 1; l < len(w.inUse); l++ {
		if !w.inUse[l] {
			w.inUse[l] = true
			return l
		}
	}
	return 0
}

func writeRingLabel(sb *strings.Builder, label int) {
	if label > 9 {
		sb.WriteByte('%')
	}
	sb.WriteString(strconv.Itoa(label))
}

func (w *smilesWriter) bondSymbol(bi int) string {
	b := w.g.Bond(bi)
	bothAromatic := w.g.Atom(b.Source).Aromatic && w.g.Atom(b.Target).Aromatic
	switch {
	case b.Stereo != StereoNone:
		return b.Stereo.String()
	case b.Aromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	case b.Order == 2:
		return "="
	case b.Order == 3:
		return "#"
	case b.Order == 4:
		return "$"
	case bothAromatic:
		return "-"
	}
	return ""
}

func (w *smilesWriter) atomText(i int) string {
	a := w.g.Atom(i)
	sym := a.Element.Symbol()
	if a.Aromatic {
		sym = a.Element.AromaticSymbol()
	}
	plain := a.Isotope == 0 && a.Charge == 0 && a.Chirality == ChiralityNone && a.Class == 0
	if plain && a.ImplicitHydrogens && a.Element.IsOrganicSubset() {
		return sym
	}
	if plain && a.Element == Unknown && a.Hydrogens == 0 {
		return "*"
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	sb.WriteString(string(a.Chirality))
	// Bracket counts are a single digit.  Larger counts are only ever derived
	// on bonded atoms, and the parser derives them again.
	if a.Hydrogens > 0 && a.Hydrogens <= 9 {
		sb.WriteByte('H')
		if a.Hydrogens > 1 {
			sb.WriteString(strconv.Itoa(a.Hydrogens))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	if a.Class > 0 {
		sb.WriteString(":" + strconv.Itoa(a.Class))
	}
	sb.WriteByte(']')
	return sb.String()
}

//Personal.AI order the ending
