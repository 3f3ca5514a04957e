// Package engine implements the molecular-interaction analysis pipeline:
// structure parsing, spatial indexing, binding-site detection, and
// classification of short-range non-covalent contacts between ligand and
// protein atoms (hydrophobic packing, hydrogen bonds, water-mediated
// bridges).
//
// The pipeline is strictly forward, from text to atoms to grid to binding
// sites to per-site interaction lists to the aggregated result.  No stage
// mutates another
// stage's output, and every invocation builds its state from scratch, so two
// analyses may run concurrently without coordination.
package engine

import "fmt"

// Atom is a single non-hydrogen atom from an ATOM or HETATM record.
// Hydrogen and deuterium atoms are filtered at parse time and never
// materialised; after alternate-location deduplication at most one Atom
// survives per (chain, residue-sequence, residue-name, atom-name) identity.
type Atom struct {
	// Serial is the record serial number, unique within a structure after
	// deduplication.
	Serial int `json:"serial"`

	// Name is the atom name, e.g. "CA", "OG", "N".
	Name string `json:"name"`

	// AltLoc is the alternate-location indicator, "" for single-conformer
	// atoms.
	AltLoc string `json:"altLoc,omitempty"`

	// ResName is the three-letter residue name, e.g. "SER", "HOH", "STI".
	ResName string `json:"resName"`

	// Chain is the chain identifier.
	Chain string `json:"chain"`

	// ResSeq is the residue sequence number within the chain.
	ResSeq int `json:"resSeq"`

	// X, Y, Z are the orthogonal coordinates in ångströms.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// Element is the element symbol, upper case, taken from the element
	// column when present or inferred from the atom name otherwise.
	Element string `json:"element"`

	// Het reports whether the atom came from a HETATM record.
	Het bool `json:"het"`
}

// Residue returns the residue identity key of the atom.
func (a *Atom) Residue() ResidueRef {
	return ResidueRef{Chain: a.Chain, ResSeq: a.ResSeq, ResName: a.ResName}
}

// DistanceSq returns the squared Euclidean distance to other in Å².
func (a *Atom) DistanceSq(other *Atom) float64 {
	dx := a.X - other.X
	dy := a.Y - other.Y
	dz := a.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// ResidueRef is a lightweight (chain, residue-sequence, residue-name) key.
// It identifies a residue without owning its atoms.
type ResidueRef struct {
	Chain   string `json:"chain"`
	ResSeq  int    `json:"resSeq"`
	ResName string `json:"resName"`
}

// String returns the display label, e.g. "A:SER65".
func (r ResidueRef) String() string {
	return fmt.Sprintf("%s:%s%d", r.Chain, r.ResName, r.ResSeq)
}

// Less orders residues by chain (lexicographic), then residue sequence
// ascending.  This is the canonical pocket-residue sort order.
func (r ResidueRef) Less(other ResidueRef) bool {
	if r.Chain != other.Chain {
		return r.Chain < other.Chain
	}
	return r.ResSeq < other.ResSeq
}

// LigandKind tags a ligand instance by chemical class.
type LigandKind string

const (
	KindSmallMolecule LigandKind = "small-molecule"
	KindIon           LigandKind = "ion"
	KindWater         LigandKind = "water"
)

// Ligand is one ligand instance identified by (chain, residue-sequence,
// residue-name), owning the list of its atoms.  Water-kind ligands are never
// promoted to binding sites.
type Ligand struct {
	Chain   string     `json:"chain"`
	ResSeq  int        `json:"resSeq"`
	ResName string     `json:"resName"`
	Kind    LigandKind `json:"kind"`
	Atoms   []*Atom    `json:"atoms"`
}

// Residue returns the ligand's residue identity key.
func (l *Ligand) Residue() ResidueRef {
	return ResidueRef{Chain: l.Chain, ResSeq: l.ResSeq, ResName: l.ResName}
}

// String returns the display label, e.g. "A:STI900".
func (l *Ligand) String() string {
	return l.Residue().String()
}

// BindingSite is one non-water ligand plus the protein atoms within the
// configured binding-site distance and the deduplicated, sorted residues
// those atoms belong to.  A BindingSite exists only if at least one pocket
// residue was found.
type BindingSite struct {
	// ID is the sequential 1-based site identifier, assigned in ligand-group
	// encounter order.
	ID int `json:"id"`

	Ligand *Ligand `json:"ligand"`

	// PocketAtoms are the protein atoms within the binding-site distance of
	// any ligand atom, deduplicated by atom identity.
	PocketAtoms []*Atom `json:"pocketAtoms"`

	// PocketResidues are the residues of PocketAtoms, deduplicated and
	// sorted by chain then ascending residue sequence.
	PocketResidues []ResidueRef `json:"pocketResidues"`
}

// InteractionFamily names one interaction classification family.
type InteractionFamily string

const (
	FamilyHydrophobic  InteractionFamily = "hydrophobic"
	FamilyHydrogenBond InteractionFamily = "hydrogen-bond"
	FamilyWaterBridge  InteractionFamily = "water-bridge"
	FamilySaltBridge   InteractionFamily = "salt-bridge"
	FamilyPiStacking   InteractionFamily = "pi-stacking"
	FamilyPiCation     InteractionFamily = "pi-cation"
	FamilyHalogenBond  InteractionFamily = "halogen-bond"
)

// HydrophobicInteraction is one hydrophobic packing contact between a ligand
// atom and an atom of a hydrophobic protein residue.
type HydrophobicInteraction struct {
	// Index is the 1-based display index, assigned after sorting by distance.
	Index int `json:"index"`

	Residue ResidueRef `json:"residue"`

	// Distance is the atom-atom distance in Å, rounded to 3 decimals.
	Distance float64 `json:"distance"`

	ProteinAtomSerial int    `json:"proteinAtomSerial"`
	ProteinAtomName   string `json:"proteinAtomName"`
	LigandAtomSerial  int    `json:"ligandAtomSerial"`
	LigandAtomName    string `json:"ligandAtomName"`
}

// HydrogenBondInteraction is one hydrogen bond between a ligand atom and a
// protein atom.  Donor/acceptor assignment is rule-based; no hydrogen
// placement or angle check is performed (geometric proxy only).
type HydrogenBondInteraction struct {
	Index int `json:"index"`

	Residue ResidueRef `json:"residue"`

	// Distance is the donor–acceptor distance in Å, rounded to 3 decimals.
	Distance float64 `json:"distance"`

	// ProteinIsDonor reports which side structurally donates: true when the
	// protein atom is the donor and the ligand atom the acceptor.
	ProteinIsDonor bool `json:"proteinIsDonor"`

	// SideChain reports whether the protein atom is a side-chain atom (as
	// opposed to a backbone atom).
	SideChain bool `json:"sideChain"`

	ProteinAtomSerial int    `json:"proteinAtomSerial"`
	ProteinAtomName   string `json:"proteinAtomName"`
	LigandAtomSerial  int    `json:"ligandAtomSerial"`
	LigandAtomName    string `json:"ligandAtomName"`
}

// WaterBridgeInteraction is one water-mediated bridge: a (protein atom,
// water oxygen, ligand atom) triangle whose legs both fall under the
// water-bridge cutoff.  Angle fields are reserved and not computed, the same
// simplification as for direct hydrogen bonds.
type WaterBridgeInteraction struct {
	Index int `json:"index"`

	Residue ResidueRef `json:"residue"`

	// LigandWaterDistance and ProteinWaterDistance are the two leg lengths
	// in Å, rounded to 3 decimals.  Records sort by their sum.
	LigandWaterDistance  float64 `json:"ligandWaterDistance"`
	ProteinWaterDistance float64 `json:"proteinWaterDistance"`

	// ProteinIsDonor reports the accepted direction: true when the protein
	// atom donates and the ligand atom accepts.
	ProteinIsDonor bool `json:"proteinIsDonor"`

	WaterSerial       int    `json:"waterSerial"`
	ProteinAtomSerial int    `json:"proteinAtomSerial"`
	ProteinAtomName   string `json:"proteinAtomName"`
	LigandAtomSerial  int    `json:"ligandAtomSerial"`
	LigandAtomName    string `json:"ligandAtomName"`
}

// SaltBridgeInteraction is reserved for the salt-bridge family.  No
// classifier produces it yet; SiteInteractions reports the family as not
// computed.
type SaltBridgeInteraction struct {
	Index           int        `json:"index"`
	Residue         ResidueRef `json:"residue"`
	Distance        float64    `json:"distance"`
	ProteinPositive bool       `json:"proteinPositive"`
}

// PiStackingInteraction is reserved for the π-stacking family.
type PiStackingInteraction struct {
	Index    int        `json:"index"`
	Residue  ResidueRef `json:"residue"`
	Distance float64    `json:"distance"`
	Parallel bool       `json:"parallel"`
}

// PiCationInteraction is reserved for the π-cation family.
type PiCationInteraction struct {
	Index    int        `json:"index"`
	Residue  ResidueRef `json:"residue"`
	Distance float64    `json:"distance"`
}

// HalogenBondInteraction is reserved for the halogen-bond family.
type HalogenBondInteraction struct {
	Index    int        `json:"index"`
	Residue  ResidueRef `json:"residue"`
	Distance float64    `json:"distance"`
}

// SiteInteractions is one binding site's full interaction report.  A nil
// slice means the family was never computed; a non-nil empty slice means the
// family was computed and found nothing.  Computed lists the families that
// actually ran, so "zero results" and "not computed" stay distinguishable
// after JSON round-trips.
type SiteInteractions struct {
	SiteID int `json:"siteId"`

	Hydrophobic   []HydrophobicInteraction  `json:"hydrophobic"`
	HydrogenBonds []HydrogenBondInteraction `json:"hydrogenBonds"`
	WaterBridges  []WaterBridgeInteraction  `json:"waterBridges"`

	SaltBridges  []SaltBridgeInteraction  `json:"saltBridges,omitempty"`
	PiStacking   []PiStackingInteraction  `json:"piStacking,omitempty"`
	PiCation     []PiCationInteraction    `json:"piCation,omitempty"`
	HalogenBonds []HalogenBondInteraction `json:"halogenBonds,omitempty"`

	Computed []InteractionFamily `json:"computed"`
}

// IsComputed reports whether the given family was actually run for this site.
func (s *SiteInteractions) IsComputed(f InteractionFamily) bool {
	for _, c := range s.Computed {
		if c == f {
			return true
		}
	}
	return false
}

// Summary aggregates counts and timing over one analysis invocation.
type Summary struct {
	TotalAtoms     int `json:"totalAtoms"`
	ProteinAtoms   int `json:"proteinAtoms"`
	LigandAtoms    int `json:"ligandAtoms"`
	WaterAtoms     int `json:"waterAtoms"`
	DroppedRecords int `json:"droppedRecords"`

	Ligands      int `json:"ligands"`
	BindingSites int `json:"bindingSites"`

	HydrophobicContacts int `json:"hydrophobicContacts"`
	HydrogenBonds       int `json:"hydrogenBonds"`
	WaterBridges        int `json:"waterBridges"`

	// ElapsedMS is the wall-clock analysis time in milliseconds.
	ElapsedMS int64 `json:"elapsedMs"`
}

// AnalysisResult aggregates all binding sites, their interactions, the input
// params, and summary statistics for one analysis invocation.
type AnalysisResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Params       AnalysisParams      `json:"params"`
	Ligands      []*Ligand           `json:"ligands"`
	Sites        []*BindingSite      `json:"sites"`
	Interactions []*SiteInteractions `json:"interactions"`
	Summary      Summary             `json:"summary"`
}

// Stage identifies one pipeline stage of the analysis state machine.
// Transitions are strictly forward with no cycles; StageError is a separate
// terminal state reachable from any stage.
type Stage string

const (
	StageParsing      Stage = "parsing"
	StageBuildingGrid Stage = "building-grid"
	StageFindingSites Stage = "finding-sites"
	StageHydrophobic  Stage = "analyzing-hydrophobic"
	StageHBond        Stage = "analyzing-hbond"
	StageWaterBridge  Stage = "analyzing-waterbridge"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// ProgressUpdate is a transient status value emitted as the pipeline
// advances.
type ProgressUpdate struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`

	// CurrentSite and TotalSites are set (1-based) during site-by-site
	// stages and zero otherwise.
	CurrentSite int `json:"currentSite,omitempty"`
	TotalSites  int `json:"totalSites,omitempty"`

	// Trace carries a diagnostic trace on the terminal error update, when
	// available.
	Trace string `json:"trace,omitempty"`
}

// ProgressFunc receives progress updates during an analysis.  The engine is
// synchronous; the callback runs on the calling goroutine and must not
// block for long.  A nil ProgressFunc is valid and disables reporting.
type ProgressFunc func(ProgressUpdate)
