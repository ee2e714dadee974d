package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementFromSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   Element
		ok     bool
	}{
		{"C", Carbon, true},
		{"Cl", Chlorine, true},
		{"Og", 118, true},
		{"*", Unknown, true},
		{"Xx", Unknown, false},
		{"c", Unknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := ElementFromSymbol(tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElement_Symbol(t *testing.T) {
	assert.Equal(t, "C", Carbon.Symbol())
	assert.Equal(t, "Br", Bromine.Symbol())
	assert.Equal(t, "*", Unknown.Symbol())
	assert.Equal(t, "se", Selenium.AromaticSymbol())
	for z := 1; z <= MaxAtomicNumber; z++ {
		e := Element(z)
		back, ok := ElementFromSymbol(e.Symbol())
		assert.True(t, ok, "z=%d", z)
		assert.Equal(t, e, back)
	}
}

func TestElement_MostCommonIsotope(t *testing.T) {
	assert.Equal(t, 1, Hydrogen.MostCommonIsotope())
	assert.Equal(t, 12, Carbon.MostCommonIsotope())
	assert.Equal(t, 35, Chlorine.MostCommonIsotope())
	assert.Equal(t, 56, Element(26).MostCommonIsotope())
	assert.Equal(t, 0, Unknown.MostCommonIsotope())
}

func TestElement_PeriodAndGroup(t *testing.T) {
	tests := []struct {
		e      Element
		period int
		group  int
	}{
		{Hydrogen, 1, 1},
		{2, 1, 18},
		{Carbon, 2, 14},
		{Chlorine, 3, 17},
		{26, 4, 8},
		{Iodine, 5, 17},
		{57, 6, 3},
		{60, 6, 0},
		{72, 6, 4},
		{86, 6, 18},
		{118, 7, 18},
	}
	for _, tt := range tests {
		t.Run(tt.e.Symbol(), func(t *testing.T) {
			assert.Equal(t, tt.period, tt.e.Period())
			assert.Equal(t, tt.group, tt.e.Group())
		})
	}
}

func TestElementFromAtomicNumber(t *testing.T) {
	e, ok := ElementFromAtomicNumber(6)
	assert.True(t, ok)
	assert.Equal(t, Carbon, e)

	e, ok = ElementFromAtomicNumber(MaxAtomicNumber)
	assert.True(t, ok)
	assert.Equal(t, MaxAtomicNumber, e.AtomicNumber())

	_, ok = ElementFromAtomicNumber(MaxAtomicNumber + 1)
	assert.False(t, ok)
	_, ok = ElementFromAtomicNumber(-1)
	assert.False(t, ok)
}

func TestElement_Valence(t *testing.T) {
	assert.Equal(t, 4, Carbon.ValenceElectrons())
	assert.Equal(t, 6, Oxygen.ValenceElectrons())
	assert.Equal(t, 8, Element(26).ValenceElectrons())

	defaults := map[Element]int{
		Hydrogen: 1, Boron: 3, Carbon: 4, Nitrogen: 3, Oxygen: 2,
		Fluorine: 1, Phosphorus: 3, Sulfur: 2, Chlorine: 1, Bromine: 1, Iodine: 1,
		10: 0, 26: 0, Unknown: 0,
	}
	for e, want := range defaults {
		assert.Equal(t, want, e.DefaultValence(), e.Symbol())
	}

	assert.Equal(t, 4, Nitrogen.chargedValence(1))
	assert.Equal(t, 1, Oxygen.chargedValence(-1))
	assert.Equal(t, 3, Carbon.chargedValence(1))
	assert.Equal(t, 4, Boron.chargedValence(-1))
}

func TestElement_IsOrganicSubset(t *testing.T) {
	assert.True(t, Carbon.IsOrganicSubset())
	assert.True(t, Iodine.IsOrganicSubset())
	assert.False(t, Selenium.IsOrganicSubset())
	assert.False(t, Hydrogen.IsOrganicSubset())
}

func TestScanner(t *testing.T) {
	s := NewScanner("ab")
	c, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, byte('a'), c)
	assert.Equal(t, 0, s.Cursor())

	c, _ = s.Pop()
	assert.Equal(t, byte('a'), c)
	c, _ = s.Pop()
	assert.Equal(t, byte('b'), c)
	assert.True(t, s.IsDone())

	_, ok = s.Pop()
	assert.False(t, ok)
	_, ok = s.Peek()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Cursor())
}

//Personal.AI order the ending
