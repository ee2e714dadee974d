package fingerprint

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// MACCSLength is the number of MACCS key positions.  Position i holds key i.
const MACCSLength = 167

// maccsKeys lists the MACCS keys as patterns.  An empty entry has no pattern
// form; it is either computed from the graph directly (see maccsComputed) or
// left unset.  Count-qualified keys ("> 1") test presence only.
var maccsKeys = [MACCSLength]string{
	/*   0 */ "", // ISOTOPE
	/*   1 */ "[#104,#105,#106,#107,#108,#109,#110,#111,#112]", // atomic number > 103
	/*   2 */ "[#104]", // #104 alone
	/*   3 */ "[#32,#33,#34,#50,#51,#52,#82,#83,#84]", // Group IVa,Va,VIa Rows 4-6
	/*   4 */ "[Ac,Th,Pa,U,Np,Pu,Am,Cm,Bk,Cf,Es,Fm,Md,No,Lr]", // actinide
	/*   5 */ "[Sc,Ti,Y,Zr,Hf]", // Group IIIB,IVB (Sc...)
	/*   6 */ "[La,Ce,Pr,Nd,Pm,Sm,Eu,Gd,Tb,Dy,Ho,Er,Tm,Yb,Lu]", // Lanthanide
	/*   7 */ "[V,Cr,Mn,Nb,Mo,Tc,Ta,W,Re]", // Group VB,VIB,VIIB
	/*   8 */ "[!#6;!#1]1~*~*~*~1", // QAAA@1
	/*   9 */ "[Fe,Co,Ni,Ru,Rh,Pd,Os,Ir,Pt]", // Group VIII (Fe...)
	/*  10 */ "[Be,Mg,Ca,Sr,Ba,Ra]", // Group IIa (Alkaline earth)
	/*  11 */ "*1~*~*~*~1", // 4M Ring
	/*  12 */ "[Cu,Zn,Ag,Cd,Au,Hg]", // Group IB,IIB (Cu..)
	/*  13 */ "[#8]~[#7](~[#6])~[#6]", // ON(C)C
	/*  14 */ "[#16]-[#16]", // S-S
	/*  15 */ "[#8]~[#6](~[#8])~[#8]", // OC(O)O
	/*  16 */ "[!#6;!#1]1~*~*~1", // QAA@1
	/*  17 */ "[#6]#[#6]", // CTC
	/*  18 */ "[#5,#13,#31,#49,#81]", // Group IIIA (B...)
	/*  19 */ "*1~*~*~*~*~*~*~1", // 7M Ring
	/*  20 */ "[#14]", // Si
	/*  21 */ "[#6]=[#6](~[!#6;!#1])~[!#6;!#1]", // C=C(Q)Q
	/*  22 */ "*1~*~*~1", // 3M Ring
	/*  23 */ "[#7]~[#6](~[#8])~[#8]", // NC(O)O
	/*  24 */ "[#7]-[#8]", // N-O
	/*  25 */ "[#7]~[#6](~[#7])~[#7]", // NC(N)N
	/*  26 */ "[#6]=;@[#6](@*)@*", // C$=C($A)$A
	/*  27 */ "[I]", // I
	/*  28 */ "[!#6;!#1]~[CH2]~[!#6;!#1]", // QCH2Q
	/*  29 */ "[#15]", // P
	/*  30 */ "[#6]~[!#6;!#1](~[#6])(~[#6])~*", // CQ(C)(C)A
	/*  31 */ "[!#6;!#1]~[F,Cl,Br,I]", // QX
	/*  32 */ "[#6]~[#16]~[#7]", // CSN
	/*  33 */ "[#7]~[#16]", // NS
	/*  34 */ "[CH2]=*", // CH2=A
	/*  35 */ "[Li,Na,K,Rb,Cs,Fr]", // Group IA (Alkali Metal)
	/*  36 */ "[#16R]", // S Heterocycle
	/*  37 */ "[#7]~[#6](~[#8])~[#7]", // NC(O)N
	/*  38 */ "[#7]~[#6](~[#6])~[#7]", // NC(C)N
	/*  39 */ "[#8]~[#16](~[#8])~[#8]", // OS(O)O
	/*  40 */ "[#16]-[#8]", // S-O
	/*  41 */ "[#6]#[#7]", // CTN
	/*  42 */ "F", // F
	/*  43 */ "[!#6;!#1;!H0]~*~[!#6;!#1;!H0]", // QHAQH
	/*  44 */ "[!#1;!#6;!#7;!#8;!#9;!#14;!#15;!#16;!#17;!#35;!#53]", // OTHER
	/*  45 */ "[#6]=[#6]~[#7]", // C=CN
	/*  46 */ "Br", // BR
	/*  47 */ "[#16]~*~[#7]", // SAN
	/*  48 */ "[#8]~[!#6;!#1](~[#8])(~[#8])", // OQ(O)O
	/*  49 */ "[!+0]", // CHARGE
	/*  50 */ "[#6]=[#6](~[#6])~[#6]", // C=C(C)C
	/*  51 */ "[#6]~[#16]~[#8]", // CSO
	/*  52 */ "[#7]~[#7]", // NN
	/*  53 */ "[!#6;!#1;!H0]~*~*~*~[!#6;!#1;!H0]", // QHAAAQH
	/*  54 */ "[!#6;!#1;!H0]~*~*~[!#6;!#1;!H0]", // QHAAQH
	/*  55 */ "[#8]~[#16]~[#8]", // OSO
	/*  56 */ "[#8]~[#7](~[#8])~[#6]", // ON(O)C
	/*  57 */ "[#8R]", // O Heterocycle
	/*  58 */ "[!#6;!#1]~[#16]~[!#6;!#1]", // QSQ
	/*  59 */ "[#16]!:*:*", // Snot%A%A
	/*  60 */ "[#16]=[#8]", // S=O
	/*  61 */ "*~[#16](~*)~*", // AS(A)A
	/*  62 */ "*@*!@*@*", // A$!A$A
	/*  63 */ "[#7]=[#8]", // N=O
	/*  64 */ "*@*!@[#16]", // A$A!S
	/*  65 */ "c:n", // C%N
	/*  66 */ "[#6]~[#6](~[#6])(~[#6])~*", // CC(C)(C)A
	/*  67 */ "[!#6;!#1]~[#16]", // QS
	/*  68 */ "[!#6;!#1;!H0]~[!#6;!#1;!H0]", // QHQH
	/*  69 */ "[!#6;!#1]~[!#6;!#1;!H0]", // QQH
	/*  70 */ "[!#6;!#1]~[#7]~[!#6;!#1]", // QNQ
	/*  71 */ "[#7]~[#8]", // NO
	/*  72 */ "[#8]~*~*~[#8]", // OAAO
	/*  73 */ "[#16]=*", // S=A
	/*  74 */ "[CH3]~*~[CH3]", // CH3ACH3
	/*  75 */ "*!@[#7]@*", // A!N$A
	/*  76 */ "[#6]=[#6](~*)~*", // C=C(A)A
	/*  77 */ "[#7]~*~[#7]", // NAN
	/*  78 */ "[#6]=[#7]", // C=N
	/*  79 */ "[#7]~*~*~[#7]", // NAAN
	/*  80 */ "[#7]~*~*~*~[#7]", // NAAAN
	/*  81 */ "[#16]~*(~*)~*", // SA(A)A
	/*  82 */ "*~[CH2]~[!#6;!#1;!H0]", // ACH2QH
	/*  83 */ "[!#6;!#1]1~*~*~*~*~1", // QAAAA@1
	/*  84 */ "[NH2]", // NH2
	/*  85 */ "[#6]~[#7](~[#6])~[#6]", // CN(C)C
	/*  86 */ "[C;H2,H3][!#6;!#1][C;H2,H3]", // CH2QCH2
	/*  87 */ "[F,Cl,Br,I]!@*@*", // X!A$A
	/*  88 */ "[#16]", // S
	/*  89 */ "[#8]~*~*~*~[#8]", // OAAAO
	/*  90 */ "[$([!#6;!#1;!H0]~*~*~[CH2]~*),$([!#6;!#1;!H0;R]1@[R]@[R]@[CH2;R]1),$([!#6;!#1;!H0]~[R]1@[R]@[CH2;R]1)]", // QHAACH2
	/*  91 */ "[$([!#6;!#1;!H0]~*~*~*~[CH2]~*),$([!#6;!#1;!H0;R]1@[R]@[R]@[R]@[CH2;R]1),$([!#6;!#1;!H0]~[R]1@[R]@[R]@[CH2;R]1),$([!#6;!#1;!H0]~*~[R]1@[R]@[CH2;R]1)]", // QHAAACH2A
	/*  92 */ "[#8]~[#6](~[#7])~[#6]", // OC(N)C
	/*  93 */ "[!#6;!#1]~[CH3]", // QCH3
	/*  94 */ "[!#6;!#1]~[#7]", // QN
	/*  95 */ "[#7]~*~*~[#8]", // NAAO
	/*  96 */ "*1~*~*~*~*~1", // 5 M ring
	/*  97 */ "[#7]~*~*~*~[#8]", // NAAAO
	/*  98 */ "[!#6;!#1]1~*~*~*~*~*~1", // QAAAAA@1
	/*  99 */ "[#6]=[#6]", // C=C
	/* 100 */ "*~[CH2]~[#7]", // ACH2N
	/* 101 */ "[$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1),$([R]@1@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]@[R]1)]", // 8M Ring or larger. This only handles up to ring sizes of 14
	/* 102 */ "[!#6;!#1]~[#8]", // QO
	/* 103 */ "Cl", // CL
	/* 104 */ "[!#6;!#1;!H0]~*~[CH2]~*", // QHACH2A
	/* 105 */ "*@*(@*)@*", // A$A($A)$A
	/* 106 */ "[!#6;!#1]~*(~[!#6;!#1])~[!#6;!#1]", // QA(Q)Q
	/* 107 */ "[F,Cl,Br,I]~*(~*)~*", // XA(A)A
	/* 108 */ "[CH3]~*~*~*~[CH2]~*", // CH3AAACH2A
	/* 109 */ "*~[CH2]~[#8]", // ACH2O
	/* 110 */ "[#7]~[#6]~[#8]", // NCO
	/* 111 */ "[#7]~*~[CH2]~*", // NACH2A
	/* 112 */ "*~*(~*)(~*)~*", // AA(A)(A)A
	/* 113 */ "[#8]!:*:*", // Onot%A%A
	/* 114 */ "[CH3]~[CH2]~*", // CH3CH2A
	/* 115 */ "[CH3]~*~[CH2]~*", // CH3ACH2A
	/* 116 */ "[$([CH3]~*~*~[CH2]~*),$([CH3]~*1~*~[CH2]1)]", // CH3AACH2A
	/* 117 */ "[#7]~*~[#8]", // NAO
	/* 118 */ "[$(*~[CH2]~[CH2]~*),$(*1~[CH2]~[CH2]1)]", // ACH2CH2A > 1
	/* 119 */ "[#7]=*", // N=A
	/* 120 */ "[!#6;R]", // Heterocyclic atom > 1
	/* 121 */ "[#7;R]", // N Heterocycle
	/* 122 */ "*~[#7](~*)~*", // AN(A)A
	/* 123 */ "[#8]~[#6]~[#8]", // OCO
	/* 124 */ "[!#6;!#1]~[!#6;!#1]", // QQ
	/* 125 */ "", // Aromatic Ring > 1
	/* 126 */ "*!@[#8]!@*", // A!O!A
	/* 127 */ "*@*!@[#8]", // A$A!O > 1
	/* 128 */ "[$(*~[CH2]~*~*~*~[CH2]~*),$([R]1@[CH2;R]@[R]@[R]@[R]@[CH2;R]1),$(*~[CH2]~[R]1@[R]@[R]@[CH2;R]1),$(*~[CH2]~*~[R]1@[R]@[CH2;R]1)]", // ACH2AAACH2A
	/* 129 */ "[$(*~[CH2]~*~*~[CH2]~*),$([R]1@[CH2]@[R]@[R]@[CH2;R]1),$(*~[CH2]~[R]1@[R]@[CH2;R]1)]", // ACH2AACH2A
	/* 130 */ "[!#6;!#1]~[!#6;!#1]", // QQ > 1
	/* 131 */ "[!#6;!#1;!H0]", // QH > 1
	/* 132 */ "[#8]~*~[CH2]~*", // OACH2A
	/* 133 */ "*@*!@[#7]", // A$A!N
	/* 134 */ "[F,Cl,Br,I]", // X (HALOGEN)
	/* 135 */ "[#7]!:*:*", // Nnot%A%A
	/* 136 */ "[#8]=*", // O=A>1
	/* 137 */ "[!C;!c;R]", // Heterocycle
	/* 138 */ "[!#6;!#1]~[CH2]~*", // QCH2A>1
	/* 139 */ "[O;!H0]", // OH
	/* 140 */ "[#8]", // O > 3
	/* 141 */ "[CH3]", // CH3 > 2
	/* 142 */ "[#7]", // N > 1
	/* 143 */ "*@*!@[#8]", // A$A!O
	/* 144 */ "*!:*:*!:*", // Anot%A%Anot%A
	/* 145 */ "*1~*~*~*~*~*~1", // 6M ring > 1
	/* 146 */ "[#8]", // O > 2
	/* 147 */ "[$(*~[CH2]~[CH2]~*),$([R]1@[CH2;R]@[CH2;R]1)]", // ACH2CH2A
	/* 148 */ "*~[!#6;!#1](~*)~*", // AQ(A)A
	/* 149 */ "[C;H3,H4]", // CH3 > 1
	/* 150 */ "*!@*@*!@*", // A!A$A!A
	/* 151 */ "[#7;!H0]", // NH
	/* 152 */ "[#8]~[#6](~[#6])~[#6]", // OC(C)C
	/* 153 */ "[!#6;!#1]~[CH2]~*", // QCH2A
	/* 154 */ "[#6]=[#8]", // C=O
	/* 155 */ "*!@[CH2]!@*", // A!CH2!A
	/* 156 */ "[#7]~*(~*)~*", // NA(A)A
	/* 157 */ "[#6]-[#8]", // C-O
	/* 158 */ "[#6]-[#7]", // C-N
	/* 159 */ "[#8]", // O>1
	/* 160 */ "[C;H3,H4]", // CH3
	/* 161 */ "[#7]", // N
	/* 162 */ "a", // Aromatic
	/* 163 */ "*1~*~*~*~*~*~1", // 6M Ring
	/* 164 */ "[#8]", // O
	/* 165 */ "[R]", // Ring
	/* 166 */ "", // Fragments
}

// maccsComputed covers the keys that cannot be written as patterns.
var maccsComputed = map[int]func(*molecule.Graph) bool{
	0:   hasIsotopeLabel,
	125: hasMultipleAromaticRings,
	166: hasMultipleFragments,
}

func hasIsotopeLabel(g *molecule.Graph) bool {
	for _, a := range g.Atoms() {
		if a.Isotope != 0 {
			return true
		}
	}
	return false
}

func hasMultipleAromaticRings(g *molecule.Graph) bool {
	rings := g.Rings()
	n := 0
	for r := 0; r < rings.NumRings(); r++ {
		aromatic := true
		for _, a := range rings.Ring(r) {
			if !g.Atom(a).Aromatic {
				aromatic = false
				break
			}
		}
		if aromatic {
			n++
		}
	}
	return n > 1
}

func hasMultipleFragments(g *molecule.Graph) bool {
	return len(g.Fragments()) > 1
}

// ─────────────────────────────────────────────────────────────────────────────
// Key sets
// ─────────────────────────────────────────────────────────────────────────────

// KeySet is a compiled key library.  It is immutable and safe for concurrent
// use.
type KeySet struct {
	fpType   Type
	patterns []string
	programs []*substructure.Program
	computed map[int]func(*molecule.Graph) bool
}

// CompileKeys compiles patterns into a key set.  Empty patterns compile to no
// program.  Every pattern that fails is reported in the returned error; none
// is skipped.
func CompileKeys(fpType Type, patterns []string, opts ...substructure.CompilerOption) (*KeySet, error) {
	c := substructure.NewCompiler(opts...)
	ks := &KeySet{
		fpType:   fpType,
		patterns: append([]string(nil), patterns...),
		programs: make([]*substructure.Program, len(patterns)),
	}
	var errs []error
	for i, pat := range patterns {
		if pat == "" {
			continue
		}
		p, err := c.Compile(pat)
		if err != nil {
			errs = append(errs, fmt.Errorf("key %d %q: %w", i, pat, err))
			continue
		}
		ks.programs[i] = p
	}
	if len(errs) > 0 {
		return nil, errors.Wrap(stderrors.Join(errs...), errors.ErrCodePatternLibraryInvalid,
			fmt.Sprintf("%d of %d keys failed to compile", len(errs), len(patterns)))
	}
	return ks, nil
}

var (
	maccsOnce sync.Once
	maccsSet  *KeySet
	maccsErr  error
)

// MACCS returns the compiled MACCS key set.  Compilation happens on first use.
func MACCS() (*KeySet, error) {
	maccsOnce.Do(func() {
		maccsSet, maccsErr = CompileKeys(TypeMACCS, maccsKeys[:])
		if maccsErr == nil {
			maccsSet.computed = maccsComputed
		}
	})
	return maccsSet, maccsErr
}

// Len returns the number of key positions.
func (ks *KeySet) Len() int { return len(ks.patterns) }

// Type returns the fingerprint type the set produces.
func (ks *KeySet) Type() Type { return ks.fpType }

// Pattern returns the pattern text of key i, or "" for a key without one.
func (ks *KeySet) Pattern(i int) string { return ks.patterns[i] }

// Generate matches every key against g and returns the resulting bit vector.
// A nil matcher searches without a step budget.  A cancelled context or an
// exhausted budget aborts with an error naming the key.
func (ks *KeySet) Generate(ctx context.Context, g *molecule.Graph, m *substructure.Matcher) (*Fingerprint, error) {
	if m == nil {
		m = substructure.NewMatcher()
	}
	fp := New(ks.fpType, len(ks.patterns))
	for i, p := range ks.programs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p == nil {
			if f, ok := ks.computed[i]; ok && f(g) {
				fp.SetBit(i)
			}
			continue
		}
		res, err := m.Match(ctx, p, g)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		if res.Matched {
			fp.SetBit(i)
		}
	}
	return fp, nil
}

//Personal.AI order the ending
