package engine

// Residue-level chemical classification tables.  These are fixed rule sets,
// not a force field: donor/acceptor assignment never places hydrogens or
// checks angles.

// waterResidueNames are the residue names treated as crystallographic water.
var waterResidueNames = map[string]bool{
	"HOH": true,
	"DOD": true,
	"WAT": true,
	"H2O": true,
	"SOL": true,
}

// excludedIonNames are common crystallisation ions.  Together with waters
// they form the exclusion set: heteroatoms with these residue names are
// never treated as analysable ligands and are folded back into the protein
// atom list as spatial context.
var excludedIonNames = map[string]bool{
	"NA": true, "K": true, "CL": true, "MG": true, "CA": true,
	"ZN": true, "MN": true, "FE": true, "CU": true, "NI": true,
	"CO": true, "CD": true, "HG": true, "BR": true, "IOD": true,
}

// hydrophobicResidues are the residues whose atoms count for hydrophobic
// packing contacts.
var hydrophobicResidues = map[string]bool{
	"ALA": true, "VAL": true, "LEU": true, "ILE": true, "MET": true,
	"PHE": true, "TRP": true, "PRO": true, "TYR": true,
}

// ionElements are element symbols that mark a single-atom heteroatom residue
// as an ion rather than a small molecule.
var ionElements = map[string]bool{
	"NA": true, "K": true, "CL": true, "MG": true, "CA": true,
	"ZN": true, "MN": true, "FE": true, "CU": true, "NI": true,
	"CO": true, "CD": true, "HG": true, "BR": true, "I": true,
	"LI": true, "RB": true, "CS": true, "SR": true, "BA": true,
}

// twoLetterElements are the two-letter element symbols the parser recognises
// when inferring an element from an atom name with no element column.
// Mercury (HG) is deliberately absent: protein hydrogen names like "HG" and
// "1HG" collide with it, and mercury records carry an element column in
// practice.
var twoLetterElements = map[string]bool{
	"FE": true, "ZN": true, "MG": true, "NA": true, "CL": true,
	"BR": true, "MN": true, "CU": true, "NI": true, "CO": true,
	"CD": true, "SE": true, "LI": true, "AL": true,
	"SI": true, "AS": true, "MO": true, "PT": true, "AU": true,
}

// backboneAtomNames are the atom names of the polypeptide backbone.  OXT is
// the terminal carboxylate oxygen.
var backboneAtomNames = map[string]bool{
	"N": true, "CA": true, "C": true, "O": true, "OXT": true,
}

// Capability describes an atom's hydrogen-bonding roles.
type Capability struct {
	Donor    bool
	Acceptor bool
}

// None reports whether the atom can take part in no hydrogen bond at all.
func (c Capability) None() bool { return !c.Donor && !c.Acceptor }

// sideChainDonorAcceptor maps residue name, then atom name, to capability for the
// named polar side-chain atoms.  Atoms absent from this table fall back to
// the coarse element rule in proteinCapability.
var sideChainDonorAcceptor = map[string]map[string]Capability{
	"SER": {"OG": {Donor: true, Acceptor: true}},
	"THR": {"OG1": {Donor: true, Acceptor: true}},
	"TYR": {"OH": {Donor: true, Acceptor: true}},
	"CYS": {"SG": {Donor: true, Acceptor: true}},
	"MET": {"SD": {Acceptor: true}},
	"ASN": {
		"OD1": {Acceptor: true},
		"ND2": {Donor: true},
	},
	"GLN": {
		"OE1": {Acceptor: true},
		"NE2": {Donor: true},
	},
	"ASP": {
		"OD1": {Acceptor: true},
		"OD2": {Acceptor: true},
	},
	"GLU": {
		"OE1": {Acceptor: true},
		"OE2": {Acceptor: true},
	},
	"HIS": {
		"ND1": {Donor: true, Acceptor: true},
		"NE2": {Donor: true, Acceptor: true},
	},
	"ARG": {
		"NE":  {Donor: true},
		"NH1": {Donor: true},
		"NH2": {Donor: true},
	},
	"LYS": {"NZ": {Donor: true}},
	"TRP": {"NE1": {Donor: true}},
}

// proteinCapability returns the hydrogen-bond capability of a protein atom.
// Backbone nitrogen is donor-only; backbone carbonyl and terminal oxygens
// are acceptor-only; named side-chain atoms follow the per-residue table;
// anything else falls back to the element rule (N, O and S are both).
func proteinCapability(a *Atom) Capability {
	switch a.Name {
	case "N":
		return Capability{Donor: true}
	case "O", "OXT":
		return Capability{Acceptor: true}
	}
	if byAtom, ok := sideChainDonorAcceptor[a.ResName]; ok {
		if c, ok := byAtom[a.Name]; ok {
			return c
		}
	}
	switch a.Element {
	case "N", "O", "S":
		return Capability{Donor: true, Acceptor: true}
	}
	return Capability{}
}

// ligandCapability returns the hydrogen-bond capability of a ligand atom
// under the coarse element rule: nitrogen and oxygen are both donor and
// acceptor, sulfur is acceptor-only.
func ligandCapability(a *Atom) Capability {
	switch a.Element {
	case "N", "O":
		return Capability{Donor: true, Acceptor: true}
	case "S":
		return Capability{Acceptor: true}
	}
	return Capability{}
}

// isWaterResidue reports whether the residue name denotes crystallographic
// water.
func isWaterResidue(resName string) bool {
	return waterResidueNames[resName]
}

// isExcludedHet reports whether a heteroatom residue name belongs to the
// exclusion set (waters and common ions).
func isExcludedHet(resName string) bool {
	return waterResidueNames[resName] || excludedIonNames[resName]
}

// classifyLigandKind tags a grouped ligand instance.  Water names are
// KindWater; a single-atom residue with an ion element is KindIon;
// everything else is a small molecule.
func classifyLigandKind(resName string, atoms []*Atom) LigandKind {
	if isWaterResidue(resName) {
		return KindWater
	}
	if len(atoms) == 1 && ionElements[atoms[0].Element] {
		return KindIon
	}
	return KindSmallMolecule
}
