package engine

import (
	"fmt"
	"strings"
)

// atomRecord renders one ATOM/HETATM line in the fixed-column legacy
// format.  Column layout (1-based): record 1–6, serial 7–11, name 13–16,
// altLoc 17, resName 18–20, chain 22, resSeq 23–26, x 31–38, y 39–46,
// z 47–54, occupancy 55–60, B-factor 61–66, element 77–78.
func atomRecord(record string, serial int, name, altLoc, resName, chain string, resSeq int, x, y, z float64, element string) string {
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, serial, name, altLoc, resName, chain, resSeq, x, y, z, 1.0, 0.0, element)
}

// structureText joins atom records into parsable structure text.
func structureText(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// syntheticProteinChain lays an ALA/SER/ASP chain along the x axis with the
// residues far apart.  Only geometry the engine inspects matters; bond
// lengths are not meant to be physical.
func syntheticProteinChain() []string {
	lines := []string{
		// ALA A1
		atomRecord("ATOM", 1, "N", "", "ALA", "A", 1, 0.0, 0.0, 0.0, "N"),
		atomRecord("ATOM", 2, "CA", "", "ALA", "A", 1, 1.5, 0.0, 0.0, "C"),
		atomRecord("ATOM", 3, "C", "", "ALA", "A", 1, 3.0, 0.0, 0.0, "C"),
		atomRecord("ATOM", 4, "O", "", "ALA", "A", 1, 3.0, 1.2, 0.0, "O"),
		atomRecord("ATOM", 5, "CB", "", "ALA", "A", 1, 1.5, 1.5, 0.0, "C"),
		// SER A2
		atomRecord("ATOM", 6, "N", "", "SER", "A", 2, 20.0, 0.0, 0.0, "N"),
		atomRecord("ATOM", 7, "CA", "", "SER", "A", 2, 21.5, 0.0, 0.0, "C"),
		atomRecord("ATOM", 8, "C", "", "SER", "A", 2, 23.0, 0.0, 0.0, "C"),
		atomRecord("ATOM", 9, "O", "", "SER", "A", 2, 23.0, 1.2, 0.0, "O"),
		atomRecord("ATOM", 10, "CB", "", "SER", "A", 2, 21.5, 1.5, 0.0, "C"),
		atomRecord("ATOM", 11, "OG", "", "SER", "A", 2, 21.5, 3.0, 0.0, "O"),
		// ASP A3
		atomRecord("ATOM", 12, "N", "", "ASP", "A", 3, 40.0, 0.0, 0.0, "N"),
		atomRecord("ATOM", 13, "CA", "", "ASP", "A", 3, 41.5, 0.0, 0.0, "C"),
		atomRecord("ATOM", 14, "C", "", "ASP", "A", 3, 43.0, 0.0, 0.0, "C"),
		atomRecord("ATOM", 15, "O", "", "ASP", "A", 3, 43.0, 1.2, 0.0, "O"),
		atomRecord("ATOM", 16, "CB", "", "ASP", "A", 3, 41.5, 1.5, 0.0, "C"),
		atomRecord("ATOM", 17, "CG", "", "ASP", "A", 3, 41.5, 3.0, 0.0, "C"),
		atomRecord("ATOM", 18, "OD1", "", "ASP", "A", 3, 40.5, 4.0, 0.0, "O"),
		atomRecord("ATOM", 19, "OD2", "", "ASP", "A", 3, 42.5, 4.0, 0.0, "O"),
	}
	return lines
}

// syntheticLigand places a two-atom small-molecule ligand so that its C1
// sits 3.0 Å from the ALA CB atom and its O1 sits 3.2 Å from the SER OG
// atom, with everything else out of cutoff range.  zShift moves the whole
// ligand away from the chain.
func syntheticLigand(zShift float64) []string {
	return []string{
		atomRecord("HETATM", 900, "C1", "", "LIG", "A", 900, 1.5, 4.5, zShift, "C"),
		atomRecord("HETATM", 901, "O1", "", "LIG", "A", 900, 21.5, 6.2, zShift, "O"),
	}
}
