package molecule

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Record is one entry of a structure-data file.
type Record struct {
	Name    string
	Program string
	Comment string
	Graph   *Graph

	// Data holds the "> <NAME>" items; DataKeys keeps their file order.
	Data     map[string]string
	DataKeys []string
}

// RecordReader streams V2000 records from an io.Reader.  After a malformed
// record Next skips ahead to the next "$$$$" separator, so callers may log the
// error and keep reading.
type RecordReader struct {
	sc     *bufio.Scanner
	line   int
	record int
	eof    bool
}

// NewRecordReader wraps r.
func NewRecordReader(r io.Reader) *RecordReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &RecordReader{sc: sc}
}

// ReadAllRecords reads every record of r and stops at the first error.
func ReadAllRecords(r io.Reader) ([]*Record, error) {
	rr := NewRecordReader(r)
	var out []*Record
	for {
		rec, err := rr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Index returns the 1-based number of the record most recently read.
func (rr *RecordReader) Index() int { return rr.record }

func (rr *RecordReader) nextLine() (string, bool) {
	if rr.eof {
		return "", false
	}
	if !rr.sc.Scan() {
		rr.eof = true
		return "", false
	}
	rr.line++
	return strings.TrimRight(rr.sc.Text(), "\r"), true
}

// Next returns the next record, or io.EOF when the input is exhausted.
func (rr *RecordReader) Next() (*Record, error) {
	first, ok := rr.nextLine()
	if !ok {
		if err := rr.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	rr.record++
	rec, err := rr.readRecord(first)
	if err == io.EOF {
		rr.record--
		return nil, io.EOF
	}
	if err != nil {
		rr.resync()
		return nil, err
	}
	return rec, nil
}

func (rr *RecordReader) resync() {
	for {
		l, ok := rr.nextLine()
		if !ok || strings.HasPrefix(l, "$$$$") {
			return
		}
	}
}

func (rr *RecordReader) fail(msg string, cause error) error {
	return &RecordError{Record: rr.record, Line: rr.line, Msg: msg, Cause: cause}
}

func (rr *RecordReader) readRecord(name string) (*Record, error) {
	rec := &Record{Name: strings.TrimSpace(name), Data: map[string]string{}}
	header := []string{name}
	for len(header) < 4 {
		l, ok := rr.nextLine()
		if !ok {
			if strings.TrimSpace(strings.Join(header, "")) == "" {
				// Only blank lines remain after the last record.
				return nil, io.EOF
			}
			if len(header) < 3 {
				return nil, rr.fail("truncated header", nil)
			}
			return nil, rr.fail("missing counts line", nil)
		}
		header = append(header, l)
	}
	rec.Program = strings.TrimSpace(header[1])
	rec.Comment = strings.TrimSpace(header[2])
	counts := header[3]

	if strings.Contains(counts, "V3000") {
		return nil, rr.fail("V3000 records are not supported", nil)
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, rr.fail("bad atom count", err)
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, rr.fail("bad bond count", err)
	}

	g := NewGraph()
	for i := 0; i < nAtoms; i++ {
		l, ok := rr.nextLine()
		if !ok {
			return nil, rr.fail("truncated atom block", nil)
		}
		a, err := parseAtomLine(l)
		if err != nil {
			return nil, rr.fail("bad atom line", err)
		}
		g.AddAtom(a)
	}
	for i := 0; i < nBonds; i++ {
		l, ok := rr.nextLine()
		if !ok {
			return nil, rr.fail("truncated bond block", nil)
		}
		if err := parseBondLine(g, l); err != nil {
			return nil, rr.fail("bad bond line", err)
		}
	}

	if err := rr.readProperties(g); err != nil {
		return nil, err
	}
	for i := 0; i < g.NumAtoms(); i++ {
		g.FillImplicitHydrogens(i)
	}
	g.Finalize()
	rec.Graph = g

	if err := rr.readData(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (rr *RecordReader) readProperties(g *Graph) error {
	chargesReset := false
	for {
		l, ok := rr.nextLine()
		if !ok {
			return rr.fail("missing M  END", nil)
		}
		switch {
		case strings.HasPrefix(l, "M  END"):
			return nil
		case strings.HasPrefix(l, "M  CHG"):
			if !chargesReset {
				// M  CHG supersedes every charge in the atom block.
				for i := range g.atoms {
					g.atoms[i].Charge = 0
				}
				chargesReset = true
			}
			if err := applyPairs(l, g, func(a *Atom, v int) { a.Charge = v }); err != nil {
				return rr.fail("bad M  CHG line", err)
			}
		case strings.HasPrefix(l, "M  ISO"):
			if err := applyPairs(l, g, func(a *Atom, v int) { a.Isotope = v }); err != nil {
				return rr.fail("bad M  ISO line", err)
			}
		}
	}
}

func (rr *RecordReader) readData(rec *Record) error {
	var key string
	var value []string
	flush := func() {
		if key == "" {
			return
		}
		if _, dup := rec.Data[key]; !dup {
			rec.DataKeys = append(rec.DataKeys, key)
		}
		rec.Data[key] = strings.Join(value, "\n")
		key, value = "", nil
	}
	for {
		l, ok := rr.nextLine()
		if !ok {
			flush()
			return nil
		}
		switch {
		case strings.HasPrefix(l, "$$$$"):
			flush()
			return nil
		case strings.HasPrefix(l, ">"):
			flush()
			open := strings.IndexByte(l, '<')
			end := strings.LastIndexByte(l, '>')
			if open < 0 || end <= open {
				return rr.fail("bad data header", nil)
			}
			key = l[open+1 : end]
		case key != "" && strings.TrimSpace(l) == "":
			flush()
		case key != "":
			value = append(value, l)
		}
	}
}

// sdfCharges maps the atom-block charge code to a formal charge.
var sdfCharges = map[int]int{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: -1, 6: -2, 7: -3}

func parseAtomLine(l string) (Atom, error) {
	var a Atom
	if len(l) < 34 {
		return a, strconv.ErrSyntax
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(l[0:10]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(l[10:20]), 64)
	z, errZ := strconv.ParseFloat(strings.TrimSpace(l[20:30]), 64)
	for _, err := range []error{errX, errY, errZ} {
		if err != nil {
			return a, err
		}
	}
	a.Coords = &Point3{X: x, Y: y, Z: z}
	a.ImplicitHydrogens = true

	sym := strings.TrimSpace(l[31:min(34, len(l))])
	switch sym {
	case "D":
		a.Element, a.Isotope = Hydrogen, 2
	case "T":
		a.Element, a.Isotope = Hydrogen, 3
	default:
		e, ok := ElementFromSymbol(sym)
		if !ok {
			e = Unknown
		}
		a.Element = e
	}
	if a.Element == Unknown {
		a.ImplicitHydrogens = false
	}

	if diff, err := fixedInt(l, 34, 36); err == nil && diff != 0 && a.Element != Unknown {
		a.Isotope = a.Element.MostCommonIsotope() + diff
	}
	if code, err := fixedInt(l, 36, 39); err == nil {
		a.Charge = sdfCharges[code]
	}
	return a, nil
}

func parseBondLine(g *Graph, l string) error {
	src, err := fixedInt(l, 0, 3)
	if err != nil {
		return err
	}
	dst, err := fixedInt(l, 3, 6)
	if err != nil {
		return err
	}
	kind, err := fixedInt(l, 6, 9)
	if err != nil {
		return err
	}
	b := Bond{Order: 1}
	switch kind {
	case 2:
		b.Order = 2
	case 3:
		b.Order = 3
	case 4:
		b.Order, b.Aromatic = 1.5, true
	}
	if _, err := g.AddBond(src-1, dst-1, b); err != nil {
		return err
	}
	if b.Aromatic {
		g.atoms[src-1].Aromatic = true
		g.atoms[dst-1].Aromatic = true
	}
	return nil
}

// applyPairs parses "M  XXXnn8 aaa vvv ..." property lines.
func applyPairs(l string, g *Graph, set func(*Atom, int)) error {
	fields := strings.Fields(l)
	if len(fields) < 3 {
		return strconv.ErrSyntax
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return err
	}
	if len(fields) < 3+2*n {
		return strconv.ErrSyntax
	}
	for i := 0; i < n; i++ {
		idx, err := strconv.Atoi(fields[3+2*i])
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(fields[4+2*i])
		if err != nil {
			return err
		}
		if idx < 1 || idx > g.NumAtoms() {
			return strconv.ErrRange
		}
		set(&g.atoms[idx-1], v)
	}
	return nil
}

// fixedInt reads the integer in columns [from, to) of l.  Columns beyond the
// end of the line read as zero.
func fixedInt(l string, from, to int) (int, error) {
	if from >= len(l) {
		return 0, nil
	}
	s := strings.TrimSpace(l[from:min(to, len(l))])
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

//Personal.AI order the ending
