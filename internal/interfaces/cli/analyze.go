package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ligandscope/internal/application/analysis"
	"github.com/turtacn/ligandscope/internal/engine"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// analyzeOptions holds the analyze command flags.
type analyzeOptions struct {
	BindingSiteDist    float64
	HydrophobicMaxDist float64
	HBondMaxDist       float64
	WaterBridgeMaxDist float64
	WaterBridge        bool
	NoProgress         bool
}

// NewAnalyzeCmd creates the analyze command: it runs the engine locally on
// a PDB file, printing staged progress to stderr and the result to stdout.
func NewAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <structure.pdb>",
		Short: "Analyze protein-ligand interactions in a PDB file",
		Long: "Analyze parses the given PDB file (\"-\" reads standard input), detects\n" +
			"binding sites around every ligand and classifies the interactions in each\n" +
			"site. Cutoff flags override the configured values for this run only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.BindingSiteDist, "binding-site-dist", 0, "binding site detection cutoff in angstroms")
	f.Float64Var(&opts.HydrophobicMaxDist, "hydrophobic-max-dist", 0, "hydrophobic contact cutoff in angstroms")
	f.Float64Var(&opts.HBondMaxDist, "hbond-max-dist", 0, "hydrogen bond donor-acceptor cutoff in angstroms")
	f.Float64Var(&opts.WaterBridgeMaxDist, "water-bridge-max-dist", 0, "water bridge leg cutoff in angstroms")
	f.BoolVar(&opts.WaterBridge, "water-bridge", true, "detect water-bridged hydrogen bonds")
	f.BoolVar(&opts.NoProgress, "no-progress", false, "suppress stage progress output")

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	structureText, err := readStructure(cmd, path)
	if err != nil {
		return err
	}

	engineCfg := cliCtx.Config.Engine
	if cmd.Flags().Changed("water-bridge") {
		engineCfg.WaterBridgeEnabled = opts.WaterBridge
	}

	params := engineCfg.Cutoffs
	if opts.BindingSiteDist > 0 {
		params.BindingSiteDist = opts.BindingSiteDist
	}
	if opts.HydrophobicMaxDist > 0 {
		params.HydrophobicMaxDist = opts.HydrophobicMaxDist
	}
	if opts.HBondMaxDist > 0 {
		params.HBondMaxDist = opts.HBondMaxDist
	}
	if opts.WaterBridgeMaxDist > 0 {
		params.WaterBridgeMaxDist = opts.WaterBridgeMaxDist
	}

	svc := analysis.NewService(analysis.Deps{
		Logger:    cliCtx.Logger,
		EngineCfg: engineCfg,
	})

	var progress engine.ProgressFunc
	if !opts.NoProgress {
		progress = func(u engine.ProgressUpdate) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%-22s] %3d%% %s\n", u.Stage, u.Percent, u.Message)
		}
	}

	result, err := svc.Analyze(cmd.Context(), structureText, params, progress)
	if err != nil {
		return err
	}

	return PrintResult(cmd, &analyzeOutput{result})
}

// readStructure loads the structure text from a file or stdin.
func readStructure(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read structure from stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read structure file "+path)
	}
	return string(data), nil
}

// analyzeOutput wraps an AnalysisResult so the table renderer can show the
// run summary; JSON output serializes the full result.
type analyzeOutput struct {
	*engine.AnalysisResult
}

func (o *analyzeOutput) TableHeaders() []string {
	return []string{"METRIC", "VALUE"}
}

func (o *analyzeOutput) TableRows() [][]string {
	s := o.Summary
	return [][]string{
		{"total atoms", strconv.Itoa(s.TotalAtoms)},
		{"protein atoms", strconv.Itoa(s.ProteinAtoms)},
		{"ligand atoms", strconv.Itoa(s.LigandAtoms)},
		{"water atoms", strconv.Itoa(s.WaterAtoms)},
		{"ligands", strconv.Itoa(s.Ligands)},
		{"binding sites", strconv.Itoa(s.BindingSites)},
		{"hydrophobic contacts", strconv.Itoa(s.HydrophobicContacts)},
		{"hydrogen bonds", strconv.Itoa(s.HydrogenBonds)},
		{"water bridges", strconv.Itoa(s.WaterBridges)},
		{"elapsed ms", strconv.FormatInt(s.ElapsedMS, 10)},
	}
}
