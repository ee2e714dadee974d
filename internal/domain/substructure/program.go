package substructure

import (
	"fmt"
	"strings"
)

// OpCode identifies a program step.
type OpCode uint8

const (
	// OpSeedAtom binds a fresh target atom; it starts each disconnected
	// pattern component.
	OpSeedAtom OpCode = iota
	// OpGrowBond follows a bond out of an already bound atom.
	OpGrowBond
	// OpCloseRing checks that two already bound atoms are bonded.
	OpCloseRing
)

func (o OpCode) String() string {
	switch o {
	case OpSeedAtom:
		return "seed"
	case OpGrowBond:
		return "grow"
	case OpCloseRing:
		return "close"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Node is one program step.  From always refers to a lower program index; for
// OpCloseRing To does as well.
type Node struct {
	Op   OpCode
	Atom *Expr // OpSeedAtom, OpGrowBond
	Bond *Expr // OpGrowBond, OpCloseRing
	From int
	To   int
}

// Program is a compiled pattern.  It is immutable after compilation.
type Program struct {
	nodes  []Node
	source string
	atoms  int
}

// Len returns the number of steps.
func (p *Program) Len() int { return len(p.nodes) }

// Node returns step i.
func (p *Program) Node(i int) Node { return p.nodes[i] }

// AtomCount returns the number of pattern atoms.
func (p *Program) AtomCount() int { return p.atoms }

// Source returns the pattern text the program was compiled from.
func (p *Program) Source() string { return p.source }

func (p *Program) String() string { return p.source }

// Dump renders the steps one per line, for debugging and the CLI.
func (p *Program) Dump() string {
	var sb strings.Builder
	for i, n := range p.nodes {
		switch n.Op {
		case OpSeedAtom:
			fmt.Fprintf(&sb, "%3d seed\n", i)
		case OpGrowBond:
			fmt.Fprintf(&sb, "%3d grow  from %d\n", i, n.From)
		case OpCloseRing:
			fmt.Fprintf(&sb, "%3d close %d-%d\n", i, n.From, n.To)
		}
	}
	return sb.String()
}

func (p *Program) emit(n Node) int {
	p.nodes = append(p.nodes, n)
	if n.Op != OpCloseRing {
		p.atoms++
	}
	return len(p.nodes) - 1
}

//Personal.AI order the ending
