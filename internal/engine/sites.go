package engine

import "sort"

// GroupLigands groups ligand-candidate atoms into discrete ligand instances
// by their (chain, residue-sequence, residue-name) identity, preserving
// encounter order.  Each group is tagged with its LigandKind.
func GroupLigands(ligandAtoms []*Atom) []*Ligand {
	var ligands []*Ligand
	index := make(map[ResidueRef]*Ligand)

	for _, a := range ligandAtoms {
		key := a.Residue()
		lig, ok := index[key]
		if !ok {
			lig = &Ligand{
				Chain:   a.Chain,
				ResSeq:  a.ResSeq,
				ResName: a.ResName,
			}
			index[key] = lig
			ligands = append(ligands, lig)
		}
		lig.Atoms = append(lig.Atoms, a)
	}

	for _, lig := range ligands {
		lig.Kind = classifyLigandKind(lig.ResName, lig.Atoms)
	}
	return ligands
}

// DetectBindingSites finds the protein pocket of every non-water ligand: the
// union of protein atoms within bindingSiteDist of any ligand atom,
// deduplicated by atom identity, with the pocket's residue set projected,
// deduplicated, and sorted by chain then ascending residue sequence.
//
// A ligand with zero pocket residues is not near any protein atom and
// produces no binding site.  Sites receive sequential 1-based IDs in
// ligand-group encounter order.
func DetectBindingSites(ligands []*Ligand, proteinGrid *Grid, bindingSiteDist float64) []*BindingSite {
	var sites []*BindingSite

	for _, lig := range ligands {
		if lig.Kind == KindWater {
			continue
		}

		seenAtoms := make(map[int]bool)
		var pocketAtoms []*Atom
		for _, la := range lig.Atoms {
			for _, pa := range proteinGrid.NeighborsOf(la, bindingSiteDist) {
				if seenAtoms[pa.Serial] {
					continue
				}
				seenAtoms[pa.Serial] = true
				pocketAtoms = append(pocketAtoms, pa)
			}
		}
		if len(pocketAtoms) == 0 {
			continue
		}

		seenResidues := make(map[ResidueRef]bool)
		var residues []ResidueRef
		for _, pa := range pocketAtoms {
			r := pa.Residue()
			if seenResidues[r] {
				continue
			}
			seenResidues[r] = true
			residues = append(residues, r)
		}
		sort.Slice(residues, func(i, j int) bool {
			return residues[i].Less(residues[j])
		})

		sites = append(sites, &BindingSite{
			ID:             len(sites) + 1,
			Ligand:         lig,
			PocketAtoms:    pocketAtoms,
			PocketResidues: residues,
		})
	}
	return sites
}
