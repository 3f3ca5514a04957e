package engine

import (
	"math"
	"sort"
)

// ClassifyHydrogenBonds finds hydrogen bonds for one binding site.  For
// every ligand atom with donor or acceptor capability, protein neighbors
// within maxDist are examined; a pair is accepted when at least one of the
// two complementary assignments is chemically valid (protein-donor with
// ligand-acceptor, or ligand-donor with protein-acceptor).  When both
// directions are valid no preference is imposed beyond the ProteinIsDonor
// flag, which records whether the protein side can structurally donate.
//
// No hydrogen placement and no angle check: the donor–acceptor distance is
// a geometric proxy, a deliberate simplification.
//
// Records are sorted by distance ascending and renumbered 1..N after
// sorting.
func ClassifyHydrogenBonds(site *BindingSite, proteinGrid *Grid, maxDist float64) []HydrogenBondInteraction {
	var out []HydrogenBondInteraction

	for _, la := range site.Ligand.Atoms {
		lcap := ligandCapability(la)
		if lcap.None() {
			continue
		}
		for _, pa := range proteinGrid.NeighborsOf(la, maxDist) {
			// Water oxygens ride along in the protein grid as spatial
			// context; ligand–water contacts are the water-bridge family's
			// domain, not direct hydrogen bonds.
			if isWaterResidue(pa.ResName) {
				continue
			}
			pcap := proteinCapability(pa)
			proteinDonates := pcap.Donor && lcap.Acceptor
			ligandDonates := lcap.Donor && pcap.Acceptor
			if !proteinDonates && !ligandDonates {
				continue
			}
			out = append(out, HydrogenBondInteraction{
				Residue:           pa.Residue(),
				Distance:          round3(math.Sqrt(la.DistanceSq(pa))),
				ProteinIsDonor:    proteinDonates,
				SideChain:         !backboneAtomNames[pa.Name],
				ProteinAtomSerial: pa.Serial,
				ProteinAtomName:   pa.Name,
				LigandAtomSerial:  la.Serial,
				LigandAtomName:    la.Name,
			})
		}
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
