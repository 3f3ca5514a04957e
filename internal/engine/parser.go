package engine

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// minRecordLen is the shortest ATOM/HETATM line that still carries the z
// coordinate (columns 47–54 of the fixed-width format).
const minRecordLen = 54

// ParsedStructure is the typed output of ParseStructure: disjoint protein
// and ligand-candidate atom lists plus their concatenation.  WaterAtoms
// aliases the water entries of ProteinAtoms (excluded heteroatoms are folded
// back in as spatial context) for the water-bridge classifier.
type ParsedStructure struct {
	ProteinAtoms []*Atom
	LigandAtoms  []*Atom
	WaterAtoms   []*Atom
	AllAtoms     []*Atom

	// Dropped counts atom records discarded for malformed numeric fields or
	// truncation.  Hydrogen filtering and altloc deduplication do not count
	// as drops.
	Dropped int
}

// atomIdentity is the deduplication key: at most one atom survives per
// (chain, residue-sequence, residue-name, atom-name).
type atomIdentity struct {
	chain   string
	resSeq  int
	resName string
	name    string
}

// ParseStructure parses raw structure text in the fixed-column legacy
// atomic-coordinate format.  Lines that are too short or are not ATOM/HETATM
// records are skipped silently; a malformed numeric field drops only that
// atom, with a warning, and parsing continues.  Hydrogen and deuterium atoms
// are never materialised.  Returns CodeStructureEmpty when no atom survives.
func ParseStructure(text string, logger logging.Logger) (*ParsedStructure, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	parsed := &ParsedStructure{}
	seen := make(map[atomIdentity]int) // identity to index into AllAtoms

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < minRecordLen {
			continue
		}
		record := strings.TrimSpace(line[0:6])
		if record != "ATOM" && record != "HETATM" {
			continue
		}

		atom, err := parseAtomLine(line, record == "HETATM")
		if err != nil {
			parsed.Dropped++
			logger.Warn("dropping malformed atom record",
				logging.Int("line", lineNo),
				logging.Err(err),
			)
			continue
		}
		if atom == nil {
			// Hydrogen or deuterium, filtered.
			continue
		}

		id := atomIdentity{
			chain:   atom.Chain,
			resSeq:  atom.ResSeq,
			resName: atom.ResName,
			name:    atom.Name,
		}
		if idx, dup := seen[id]; dup {
			// Alternate locations: prefer "" or "A"; otherwise first wins.
			if preferredAltLoc(atom.AltLoc) && !preferredAltLoc(parsed.AllAtoms[idx].AltLoc) {
				parsed.AllAtoms[idx] = atom
			}
			continue
		}
		seen[id] = len(parsed.AllAtoms)
		parsed.AllAtoms = append(parsed.AllAtoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStructureMalformed, "failed to scan structure text")
	}

	if len(parsed.AllAtoms) == 0 {
		return nil, errors.New(errors.CodeStructureEmpty, "no atom records found in structure")
	}

	// Split: heteroatoms outside the exclusion set are ligand candidates;
	// everything else (including excluded heteroatoms) is protein context.
	for _, a := range parsed.AllAtoms {
		if a.Het && !isExcludedHet(a.ResName) {
			parsed.LigandAtoms = append(parsed.LigandAtoms, a)
			continue
		}
		parsed.ProteinAtoms = append(parsed.ProteinAtoms, a)
		if isWaterResidue(a.ResName) {
			parsed.WaterAtoms = append(parsed.WaterAtoms, a)
		}
	}

	return parsed, nil
}

// preferredAltLoc reports whether an alternate-location code wins the
// deduplication: the blank code and conformer "A" are canonical.
func preferredAltLoc(altLoc string) bool {
	return altLoc == "" || altLoc == "A"
}

// parseAtomLine parses one ATOM/HETATM line.  Returns (nil, nil) for
// hydrogen and deuterium atoms.
func parseAtomLine(line string, het bool) (*Atom, error) {
	serial, err := parseIntField(line, 6, 11, "serial")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(line[12:16])
	altLoc := strings.TrimSpace(line[16:17])
	resName := strings.TrimSpace(line[17:20])
	chain := strings.TrimSpace(line[21:22])
	resSeq, err := parseIntField(line, 22, 26, "residue sequence")
	if err != nil {
		return nil, err
	}
	x, err := parseFloatField(line, 30, 38, "x")
	if err != nil {
		return nil, err
	}
	y, err := parseFloatField(line, 38, 46, "y")
	if err != nil {
		return nil, err
	}
	z, err := parseFloatField(line, 46, 54, "z")
	if err != nil {
		return nil, err
	}

	element := ""
	if len(line) >= 78 {
		element = strings.ToUpper(strings.TrimSpace(line[76:78]))
	}
	if element == "" {
		element = inferElement(name)
	}
	if element == "H" || element == "D" {
		return nil, nil
	}

	return &Atom{
		Serial:  serial,
		Name:    name,
		AltLoc:  altLoc,
		ResName: resName,
		Chain:   chain,
		ResSeq:  resSeq,
		X:       x,
		Y:       y,
		Z:       z,
		Element: element,
		Het:     het,
	}, nil
}

// inferElement guesses the element symbol from an atom name when the element
// column is blank: digits are stripped, a recognised two-letter symbol wins,
// otherwise the first remaining letter is taken, and carbon is the fallback
// when no letter survives.
func inferElement(name string) string {
	var letters []byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			letters = append(letters, c)
		}
	}
	if len(letters) == 0 {
		return "C"
	}
	if len(letters) >= 2 && twoLetterElements[string(letters[0:2])] {
		return string(letters[0:2])
	}
	return string(letters[0:1])
}

func parseIntField(line string, from, to int, field string) (int, error) {
	raw := strings.TrimSpace(line[from:to])
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf(errors.CodeStructureMalformed,
			"malformed %s field %q", field, raw)
	}
	return v, nil
}

func parseFloatField(line string, from, to int, field string) (float64, error) {
	raw := strings.TrimSpace(line[from:to])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Newf(errors.CodeStructureMalformed,
			"malformed %s coordinate %q", field, raw)
	}
	return v, nil
}
