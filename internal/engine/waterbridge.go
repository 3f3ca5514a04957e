package engine

import (
	"math"
	"sort"
)

// ClassifyWaterBridges finds water-mediated bridges for one binding site:
// triangles (protein atom, water oxygen, ligand atom) in which the water
// sits within maxDist of both ends and the protein/ligand pair forms a
// chemically valid donor/acceptor assignment through the water (protein
// donates and the ligand can accept, or the protein accepts and the ligand
// can donate).
//
// Both leg distances are recorded, rounded to 3 decimals; records sort by
// the sum of the two legs ascending and are renumbered 1..N after sorting.
// Angles through the water are reserved and not computed, the same
// simplification as for direct hydrogen bonds.
func ClassifyWaterBridges(site *BindingSite, proteinGrid, waterGrid *Grid, maxDist float64) []WaterBridgeInteraction {
	var out []WaterBridgeInteraction

	for _, la := range site.Ligand.Atoms {
		lcap := ligandCapability(la)
		if lcap.None() {
			continue
		}
		for _, w := range waterGrid.NeighborsOf(la, maxDist) {
			ligandLeg := math.Sqrt(la.DistanceSq(w))
			for _, pa := range proteinGrid.NeighborsOf(w, maxDist) {
				// The protein grid also holds the waters themselves; a
				// bridge needs a real protein (or non-water context) atom
				// on the far side.
				if isWaterResidue(pa.ResName) {
					continue
				}
				pcap := proteinCapability(pa)
				proteinDonates := pcap.Donor && lcap.Acceptor
				ligandDonates := lcap.Donor && pcap.Acceptor
				if !proteinDonates && !ligandDonates {
					continue
				}
				out = append(out, WaterBridgeInteraction{
					Residue:              pa.Residue(),
					LigandWaterDistance:  round3(ligandLeg),
					ProteinWaterDistance: round3(math.Sqrt(pa.DistanceSq(w))),
					ProteinIsDonor:       proteinDonates,
					WaterSerial:          w.Serial,
					ProteinAtomSerial:    pa.Serial,
					ProteinAtomName:      pa.Name,
					LigandAtomSerial:     la.Serial,
					LigandAtomName:       la.Name,
				})
			}
		}
	}

	legSum := func(r WaterBridgeInteraction) float64 {
		return r.LigandWaterDistance + r.ProteinWaterDistance
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := legSum(out[i]), legSum(out[j])
		if si != sj {
			return si < sj
		}
		if out[i].ProteinAtomSerial != out[j].ProteinAtomSerial {
			return out[i].ProteinAtomSerial < out[j].ProteinAtomSerial
		}
		if out[i].LigandAtomSerial != out[j].LigandAtomSerial {
			return out[i].LigandAtomSerial < out[j].LigandAtomSerial
		}
		return out[i].WaterSerial < out[j].WaterSerial
	})
	for i := range out {
		out[i].Index = i + 1
	}
	return out
}
