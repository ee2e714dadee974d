package molecule

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sdfAtom struct {
	sym    string
	mass   int
	charge int
}

type sdfBond struct {
	a, b, kind int
}

func buildRecord(name string, atoms []sdfAtom, bonds []sdfBond, props []string, data map[string]string) string {
	var sb strings.Builder
	sb.WriteString(name + "\n  KeyIP-Chem\n\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), len(bonds))
	for i, a := range atoms {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s%2d%3d  0  0  0  0  0  0  0  0  0  0\n",
			float64(i)*1.5, 0.0, 0.0, a.sym, a.mass, a.charge)
	}
	for _, b := range bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d  0\n", b.a, b.b, b.kind)
	}
	for _, p := range props {
		sb.WriteString(p + "\n")
	}
	sb.WriteString("M  END\n")
	for k, v := range data {
		fmt.Fprintf(&sb, "> <%s>\n%s\n\n", k, v)
	}
	sb.WriteString("$$$$\n")
	return sb.String()
}

func ethanolRecord() string {
	return buildRecord("ethanol",
		[]sdfAtom{{sym: "C"}, {sym: "C"}, {sym: "O"}},
		[]sdfBond{{1, 2, 1}, {2, 3, 1}},
		nil,
		map[string]string{"ID": "C-001"})
}

func TestRecordReader_Ethanol(t *testing.T) {
	recs, err := ReadAllRecords(strings.NewReader(ethanolRecord()))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "ethanol", rec.Name)
	assert.Equal(t, "KeyIP-Chem", rec.Program)
	assert.Equal(t, "C-001", rec.Data["ID"])
	assert.Equal(t, []string{"ID"}, rec.DataKeys)

	g := rec.Graph
	require.Equal(t, 3, g.NumAtoms())
	require.Equal(t, 2, g.NumBonds())
	assert.Equal(t, []int{3, 2, 5}, []int{g.Atom(0).Hydrogens, g.Atom(1).Hydrogens, g.Atom(2).Hydrogens})
	require.NotNil(t, g.Atom(1).Coords)
	assert.InDelta(t, 1.5, g.Atom(1).Coords.X, 1e-9)
	assert.Equal(t, "C2H10O", g.Formula())
}

func TestRecordReader_PropertiesAndAromatic(t *testing.T) {
	acetate := buildRecord("acetate",
		[]sdfAtom{{sym: "C"}, {sym: "C"}, {sym: "O"}, {sym: "O", charge: 3}},
		[]sdfBond{{1, 2, 1}, {2, 3, 2}, {2, 4, 1}},
		[]string{"M  CHG  1   4  -1", "M  ISO  1   1  13"},
		nil)
	benzene := buildRecord("benzene",
		[]sdfAtom{{sym: "C"}, {sym: "C"}, {sym: "C"}, {sym: "C"}, {sym: "C"}, {sym: "C"}},
		[]sdfBond{{1, 2, 4}, {2, 3, 4}, {3, 4, 4}, {4, 5, 4}, {5, 6, 4}, {6, 1, 4}},
		nil, nil)

	recs, err := ReadAllRecords(strings.NewReader(acetate + benzene))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	g := recs[0].Graph
	// The atom-block charge code on atom 4 is replaced by M  CHG.
	assert.Equal(t, -1, g.Atom(3).Charge)
	assert.Equal(t, 5, g.Atom(3).Hydrogens)
	assert.Equal(t, 13, g.Atom(0).Isotope)
	assert.Equal(t, 3, g.Atom(0).Hydrogens)
	assert.Equal(t, 2.0, g.Bond(1).Order)

	g = recs[1].Graph
	for i := 0; i < g.NumAtoms(); i++ {
		assert.True(t, g.Atom(i).Aromatic)
		assert.Equal(t, 1, g.Atom(i).Hydrogens)
	}
	assert.Equal(t, 1.5, g.Bond(0).Order)
	assert.Equal(t, 1, g.Rings().NumRings())
}

func TestRecordReader_MassDifferenceAndCharge(t *testing.T) {
	rec := buildRecord("ammonium",
		[]sdfAtom{{sym: "N", mass: 1, charge: 3}},
		nil, nil, nil)
	recs, err := ReadAllRecords(strings.NewReader(rec))
	require.NoError(t, err)
	a := recs[0].Graph.Atom(0)
	assert.Equal(t, 15, a.Isotope)
	assert.Equal(t, 1, a.Charge)
	assert.Equal(t, 5, a.Hydrogens)
}

func TestRecordReader_ResyncAfterBadRecord(t *testing.T) {
	bad := "broken\n  KeyIP-Chem\n\n  2  0  0  0  0  0  0  0  0  0999 V2000\ngarbage\n$$$$\n"
	input := ethanolRecord() + bad + ethanolRecord()

	rr := NewRecordReader(strings.NewReader(input))
	rec, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "ethanol", rec.Name)

	_, err = rr.Next()
	var re *RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Record)

	rec, err = rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "ethanol", rec.Name)
	assert.Equal(t, 3, rr.Index())

	_, err = rr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRecordReader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing counts", "x\ny\n"},
		{"v3000", "x\ny\nz\n  0  0  0     0  0            999 V3000\nM  END\n$$$$\n"},
		{"missing end", "x\ny\nz\n  0  0  0  0  0  0  0  0  0  0999 V2000\n"},
		{"bad bond", buildRecord("b", []sdfAtom{{sym: "C"}}, []sdfBond{{1, 2, 1}}, nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAllRecords(strings.NewReader(tt.input))
			var re *RecordError
			assert.True(t, errors.As(err, &re), "got %v", err)
		})
	}
}

func TestRecordReader_TrailingBlankLines(t *testing.T) {
	recs, err := ReadAllRecords(strings.NewReader(ethanolRecord() + "\n\n"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

//Personal.AI order the ending
