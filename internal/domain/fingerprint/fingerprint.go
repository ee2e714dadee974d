// Package fingerprint computes pattern-library key fingerprints over molecular
// graphs and compares them.  Keys are compiled once and matched with the
// substructure engine; the package implements no parsing or matching of its
// own.
package fingerprint

import (
	"encoding/hex"
	"math/bits"

	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// Type identifies the key library a fingerprint was computed with.
type Type string

const (
	TypeMACCS Type = "maccs"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Structure
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is a packed bit vector.  Bit i lives in byte i/8 at position
// i%8.
type Fingerprint struct {
	Type      Type   `json:"type"`
	Bits      []byte `json:"bits"`
	Length    int    `json:"length"`
	NumOnBits int    `json:"num_on_bits"`
}

// New returns an all-zero fingerprint of length bits.
func New(fpType Type, length int) *Fingerprint {
	if length < 0 {
		length = 0
	}
	return &Fingerprint{
		Type:   fpType,
		Bits:   make([]byte, (length+7)/8),
		Length: length,
	}
}

// FromBytes rebuilds a fingerprint from its packed form.
func FromBytes(fpType Type, data []byte, length int) (*Fingerprint, error) {
	if length < 0 || len(data) != (length+7)/8 {
		return nil, errors.Errorf(errors.ErrCodeValidation,
			"fingerprint of %d bits needs %d bytes, got %d", length, (length+7)/8, len(data))
	}
	fp := &Fingerprint{Type: fpType, Bits: append([]byte(nil), data...), Length: length}
	for _, b := range fp.Bits {
		fp.NumOnBits += bits.OnesCount8(b)
	}
	return fp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bit Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetBit reports whether bit index is set.  Out-of-range indices read as unset.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets bit index.  Out-of-range indices are ignored.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.Length {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.NumOnBits++
	}
}

// OnBits lists the set bit indices in ascending order.
func (fp *Fingerprint) OnBits() []int {
	out := make([]int, 0, fp.NumOnBits)
	for i := 0; i < fp.Length; i++ {
		if fp.GetBit(i) {
			out = append(out, i)
		}
	}
	return out
}

// Hex renders the packed bits as lowercase hex.
func (fp *Fingerprint) Hex() string {
	return hex.EncodeToString(fp.Bits)
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity
// ─────────────────────────────────────────────────────────────────────────────

// Metric names a similarity coefficient.
type Metric string

const (
	MetricTanimoto Metric = "tanimoto"
	MetricDice     Metric = "dice"
)

// IsValid reports whether m is a supported metric.
func (m Metric) IsValid() bool {
	return m == MetricTanimoto || m == MetricDice
}

func compatible(a, b *Fingerprint) error {
	if a == nil || b == nil {
		return errors.InvalidParam("fingerprint is nil")
	}
	if a.Type != b.Type || a.Length != b.Length {
		return errors.New(errors.ErrCodeValidation, "fingerprints must have same type and length")
	}
	return nil
}

// Tanimoto returns |a∩b| / |a∪b|.  Two empty fingerprints score 0.
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if err := compatible(a, b); err != nil {
		return 0, err
	}
	var inter, union int
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
		union += bits.OnesCount8(a.Bits[i] | b.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(inter) / float64(union), nil
}

// Dice returns 2|a∩b| / (|a|+|b|).
func Dice(a, b *Fingerprint) (float64, error) {
	if err := compatible(a, b); err != nil {
		return 0, err
	}
	inter := 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
	}
	den := a.NumOnBits + b.NumOnBits
	if den == 0 {
		return 0, nil
	}
	return 2 * float64(inter) / float64(den), nil
}

// Similarity dispatches on metric.
func Similarity(metric Metric, a, b *Fingerprint) (float64, error) {
	switch metric {
	case MetricTanimoto, "":
		return Tanimoto(a, b)
	case MetricDice:
		return Dice(a, b)
	}
	return 0, errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+string(metric))
}

//Personal.AI order the ending
