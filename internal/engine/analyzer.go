package engine

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// Progress bands.  Each stage owns a fixed percentage band; site-by-site
// stages interpolate linearly within theirs.
const (
	pctParsing      = 0
	pctBuildingGrid = 10
	pctFindingSites = 20
	pctHydrophobic  = 30
	pctHBond        = 50
	pctWaterBridge  = 75
	pctDone         = 95
	pctComplete     = 100
)

// Analyzer runs the full analysis pipeline.  It is stateless between
// invocations: every Analyze call parses, indexes, and classifies from
// scratch, so a single Analyzer may serve concurrent callers.
type Analyzer struct {
	params      AnalysisParams
	logger      logging.Logger
	waterBridge bool
	cellSize    float64
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithWaterBridge toggles the water-bridge stage.  The full triangle
// algorithm is the design target and runs by default; disabling it skips
// the stage entirely, leaving the family marked as not computed rather than
// computed-empty.
func WithWaterBridge(enabled bool) Option {
	return func(a *Analyzer) { a.waterBridge = enabled }
}

// WithCellSize overrides the spatial-index cell side length in Å.
func WithCellSize(size float64) Option {
	return func(a *Analyzer) { a.cellSize = size }
}

// NewAnalyzer validates params (after filling zero-valued cutoffs with
// defaults) and returns a ready Analyzer.
func NewAnalyzer(params AnalysisParams, logger logging.Logger, opts ...Option) (*Analyzer, error) {
	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &Analyzer{
		params:      params,
		logger:      logger.Named("engine"),
		waterBridge: true,
		cellSize:    DefaultCellSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Params returns the validated cutoffs the Analyzer runs with.
func (a *Analyzer) Params() AnalysisParams { return a.params }

// Analyze runs the staged pipeline over raw structure text, in order:
// parsing, building-grid, finding-sites, analyzing-hydrophobic,
// analyzing-hbond, analyzing-waterbridge, complete. A separate terminal
// error state is reachable from any stage.  Progress
// events are delivered synchronously through progress (may be nil).  On
// failure the returned error is the single error surfaced for the whole
// analysis; no partial result is returned alongside it.  A panic in any
// stage is recovered at this boundary and reported as a stage failure with
// a diagnostic trace.
func (a *Analyzer) Analyze(ctx context.Context, structureText string, progress ProgressFunc) (result *AnalysisResult, err error) {
	start := time.Now()

	emit := func(u ProgressUpdate) {
		if progress != nil {
			progress(u)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.CodeStageFailed, "analysis stage panicked: %v", r).
				WithDetail(string(debug.Stack()))
			result = nil
		}
		if err != nil {
			a.logger.Error("analysis failed", logging.Err(err))
			emit(ProgressUpdate{
				Stage:   StageError,
				Message: err.Error(),
				Trace:   errors.GetStack(err),
			})
		}
	}()

	checkCtx := func() error {
		if cerr := ctx.Err(); cerr != nil {
			return errors.Wrap(cerr, errors.ErrCodeTimeout, "analysis cancelled")
		}
		return nil
	}

	// ── Stage: parsing ──
	emit(ProgressUpdate{Stage: StageParsing, Percent: pctParsing, Message: "parsing structure"})
	parsed, err := ParseStructure(structureText, a.logger)
	if err != nil {
		return nil, err
	}
	if len(parsed.LigandAtoms) == 0 {
		return nil, errors.New(errors.CodeNoLigands, "no ligands found in structure")
	}
	if err = checkCtx(); err != nil {
		return nil, err
	}

	// ── Stage: building-grid ──
	emit(ProgressUpdate{Stage: StageBuildingGrid, Percent: pctBuildingGrid, Message: "building spatial index"})
	proteinGrid := NewGrid(parsed.ProteinAtoms, a.cellSize)
	waterGrid := NewGrid(parsed.WaterAtoms, a.cellSize)
	if err = checkCtx(); err != nil {
		return nil, err
	}

	// ── Stage: finding-sites ──
	emit(ProgressUpdate{Stage: StageFindingSites, Percent: pctFindingSites, Message: "detecting binding sites"})
	ligands := GroupLigands(parsed.LigandAtoms)
	sites := DetectBindingSites(ligands, proteinGrid, a.params.BindingSiteDist)
	if len(sites) == 0 {
		return nil, errors.New(errors.CodeNoBindingSites, "no binding sites found")
	}
	a.logger.Info("binding sites detected",
		logging.Int("ligands", len(ligands)),
		logging.Int("sites", len(sites)),
	)
	if err = checkCtx(); err != nil {
		return nil, err
	}

	interactions := make([]*SiteInteractions, len(sites))
	for i, site := range sites {
		interactions[i] = &SiteInteractions{SiteID: site.ID}
	}

	// sitePct interpolates linearly within [from, to) as site i of n
	// completes.
	sitePct := func(from, to, i, n int) int {
		return from + (to-from)*i/n
	}

	// ── Stage: analyzing-hydrophobic ──
	for i, site := range sites {
		emit(ProgressUpdate{
			Stage:       StageHydrophobic,
			Percent:     sitePct(pctHydrophobic, pctHBond, i, len(sites)),
			Message:     "classifying hydrophobic contacts",
			CurrentSite: i + 1,
			TotalSites:  len(sites),
		})
		recs := ClassifyHydrophobic(site, proteinGrid, a.params.HydrophobicMaxDist)
		if recs == nil {
			recs = []HydrophobicInteraction{}
		}
		interactions[i].Hydrophobic = recs
		interactions[i].Computed = append(interactions[i].Computed, FamilyHydrophobic)
	}
	if err = checkCtx(); err != nil {
		return nil, err
	}

	// ── Stage: analyzing-hbond ──
	for i, site := range sites {
		emit(ProgressUpdate{
			Stage:       StageHBond,
			Percent:     sitePct(pctHBond, pctWaterBridge, i, len(sites)),
			Message:     "classifying hydrogen bonds",
			CurrentSite: i + 1,
			TotalSites:  len(sites),
		})
		recs := ClassifyHydrogenBonds(site, proteinGrid, a.params.HBondMaxDist)
		if recs == nil {
			recs = []HydrogenBondInteraction{}
		}
		interactions[i].HydrogenBonds = recs
		interactions[i].Computed = append(interactions[i].Computed, FamilyHydrogenBond)
	}
	if err = checkCtx(); err != nil {
		return nil, err
	}

	// ── Stage: analyzing-waterbridge ──
	if a.waterBridge {
		for i, site := range sites {
			emit(ProgressUpdate{
				Stage:       StageWaterBridge,
				Percent:     sitePct(pctWaterBridge, pctDone, i, len(sites)),
				Message:     "classifying water bridges",
				CurrentSite: i + 1,
				TotalSites:  len(sites),
			})
			recs := ClassifyWaterBridges(site, proteinGrid, waterGrid, a.params.WaterBridgeMaxDist)
			if recs == nil {
				recs = []WaterBridgeInteraction{}
			}
			interactions[i].WaterBridges = recs
			interactions[i].Computed = append(interactions[i].Computed, FamilyWaterBridge)
		}
		if err = checkCtx(); err != nil {
			return nil, err
		}
	}

	// ── Stage: complete ──
	summary := Summary{
		TotalAtoms:     len(parsed.AllAtoms),
		ProteinAtoms:   len(parsed.ProteinAtoms),
		LigandAtoms:    len(parsed.LigandAtoms),
		WaterAtoms:     len(parsed.WaterAtoms),
		DroppedRecords: parsed.Dropped,
		Ligands:        len(ligands),
		BindingSites:   len(sites),
		ElapsedMS:      time.Since(start).Milliseconds(),
	}
	for _, si := range interactions {
		summary.HydrophobicContacts += len(si.Hydrophobic)
		summary.HydrogenBonds += len(si.HydrogenBonds)
		summary.WaterBridges += len(si.WaterBridges)
	}

	result = &AnalysisResult{
		Success:      true,
		Params:       a.params,
		Ligands:      ligands,
		Sites:        sites,
		Interactions: interactions,
		Summary:      summary,
	}

	a.logger.Info("analysis complete",
		logging.Int("sites", summary.BindingSites),
		logging.Int("hydrophobic", summary.HydrophobicContacts),
		logging.Int("hbonds", summary.HydrogenBonds),
		logging.Int("waterBridges", summary.WaterBridges),
		logging.Int64("elapsed_ms", summary.ElapsedMS),
	)
	emit(ProgressUpdate{Stage: StageComplete, Percent: pctComplete, Message: "analysis complete"})
	return result, nil
}

// FailureResult builds an AnalysisResult describing a failed analysis, for
// callers that persist results in both outcomes.  It carries no partial
// pipeline output.
func FailureResult(params AnalysisParams, err error) *AnalysisResult {
	msg := "analysis failed"
	if err != nil {
		msg = err.Error()
	}
	return &AnalysisResult{
		Success: false,
		Error:   msg,
		Params:  params,
	}
}
