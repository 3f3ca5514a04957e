package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscope/internal/engine"
)

func testAtomLine(record string, serial int, name, resName, chain string, resSeq int, x, y, z float64, element string) string {
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, serial, name, "", resName, chain, resSeq, x, y, z, 1.0, 0.0, element)
}

func testStructure() string {
	lines := []string{
		testAtomLine("ATOM", 1, "N", "ALA", "A", 1, 0.0, 0.0, 0.0, "N"),
		testAtomLine("ATOM", 2, "CA", "ALA", "A", 1, 1.5, 0.0, 0.0, "C"),
		testAtomLine("ATOM", 3, "C", "ALA", "A", 1, 3.0, 0.0, 0.0, "C"),
		testAtomLine("ATOM", 4, "O", "ALA", "A", 1, 3.0, 1.2, 0.0, "O"),
		testAtomLine("ATOM", 5, "CB", "ALA", "A", 1, 1.5, 1.5, 0.0, "C"),
		testAtomLine("HETATM", 900, "C1", "LIG", "A", 900, 1.5, 4.5, 0.0, "C"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func writeTestStructure(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structure.pdb")
	require.NoError(t, os.WriteFile(path, []byte(testStructure()), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cmd, out, errOut, err
}

func TestAnalyze_JSONOutput(t *testing.T) {
	path := writeTestStructure(t)

	_, out, _, err := runCommand(t, "analyze", path, "--no-progress")
	require.NoError(t, err)

	var result engine.AnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Summary.BindingSites)
	assert.Equal(t, 1, result.Summary.HydrophobicContacts)
}

func TestAnalyze_TableOutput(t *testing.T) {
	path := writeTestStructure(t)

	_, out, _, err := runCommand(t, "analyze", path, "--output", "table", "--no-progress")
	require.NoError(t, err)

	body := out.String()
	assert.Contains(t, body, "METRIC")
	assert.Contains(t, body, "binding sites")
	assert.Contains(t, body, "hydrophobic contacts")
}

func TestAnalyze_Stdin(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(testStructure()))
	cmd.SetArgs([]string{"analyze", "-", "--no-progress"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"success": true`)
}

func TestAnalyze_ProgressOnStderr(t *testing.T) {
	path := writeTestStructure(t)

	_, _, errOut, err := runCommand(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "parsing")
	assert.Contains(t, errOut.String(), "100%")
}

func TestAnalyze_CutoffOverride(t *testing.T) {
	path := writeTestStructure(t)

	// the only carbon pair is 3.0 angstroms apart, a 2.0 cutoff excludes it
	_, out, _, err := runCommand(t, "analyze", path,
		"--hydrophobic-max-dist", "2.0", "--no-progress")
	require.NoError(t, err)

	var result engine.AnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 1, result.Summary.BindingSites)
	assert.Equal(t, 0, result.Summary.HydrophobicContacts)
}

func TestAnalyze_MissingFile(t *testing.T) {
	_, _, _, err := runCommand(t, "analyze", "does-not-exist.pdb", "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.pdb")
}

func TestAnalyze_RequiresExactlyOneArg(t *testing.T) {
	_, _, _, err := runCommand(t, "analyze")
	require.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"NAME", "COUNT"},
		[][]string{{"alpha", "1"}, {"much-longer-name", "22"}},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "----")
	assert.Contains(t, lines[3], "much-longer-name")
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Equal(t, "", FormatTable(nil, nil))
}
