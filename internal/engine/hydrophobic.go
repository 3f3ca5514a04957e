package engine

import (
	"math"
	"sort"
)

// round3 rounds a distance to 3 decimals, the precision of every reported
// interaction distance.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// hydrophobicKey deduplicates contacts: a protein residue is reported at
// most once per ligand atom, even when several of its atoms qualify.
type hydrophobicKey struct {
	residue      ResidueRef
	ligandSerial int
}

// ClassifyHydrophobic finds hydrophobic packing contacts for one binding
// site: ligand atoms against protein atoms of hydrophobic residues within
// maxDist.  When several atoms of the same residue contact the same ligand
// atom, the closest survives (lower protein serial on equal distance).
// Records are sorted by distance ascending and renumbered 1..N after
// sorting, so the index always reflects rank by proximity, never discovery
// order.
func ClassifyHydrophobic(site *BindingSite, proteinGrid *Grid, maxDist float64) []HydrophobicInteraction {
	best := make(map[hydrophobicKey]HydrophobicInteraction)

	for _, la := range site.Ligand.Atoms {
		for _, pa := range proteinGrid.NeighborsOf(la, maxDist) {
			if !hydrophobicResidues[pa.ResName] {
				continue
			}
			rec := HydrophobicInteraction{
				Residue:           pa.Residue(),
				Distance:          round3(math.Sqrt(la.DistanceSq(pa))),
				ProteinAtomSerial: pa.Serial,
				ProteinAtomName:   pa.Name,
				LigandAtomSerial:  la.Serial,
				LigandAtomName:    la.Name,
			}
			key := hydrophobicKey{residue: rec.Residue, ligandSerial: la.Serial}
			prev, ok := best[key]
			if !ok || rec.Distance < prev.Distance ||
				(rec.Distance == prev.Distance && rec.ProteinAtomSerial < prev.ProteinAtomSerial) {
				best[key] = rec
			}
		}
	}

	out := make([]HydrophobicInteraction, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].ProteinAtomSerial != out[j].ProteinAtomSerial {
			return out[i].ProteinAtomSerial < out[j].ProteinAtomSerial
		}
		return out[i].LigandAtomSerial < out[j].LigandAtomSerial
	})
	for i := range out {
		out[i].Index = i + 1
	}
	return out
}
