package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Spatchler/VMesh-CLI/internal/svdag"
)

func writeUnitCubeOBJ(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cube.obj")
	// Surface of the axis-aligned unit cube [0,1]^3.
	contents := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0 0 1
v 1 0 1
v 1 1 1
v 0 1 1
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 2 6 7 3
f 3 7 8 4
f 4 8 5 1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunUnitCubeToSVDAG(t *testing.T) {
	// Scenario 2: unit cube fit, R=2, mode stretch -> dense grid
	// all-ones -> octree N=1, record [SOLID x8].
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	output := filepath.Join(dir, "cube.svo")

	var stdout bytes.Buffer
	code := Run([]string{
		"-S", "-R", "2", "--scale-mode", "stretch",
		input, output,
	}, &stdout, &stdout)

	if code != 0 {
		t.Fatalf("Run() = %d, want 0; stdout: %s", code, stdout.String())
	}

	res, records, err := svdag.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if res != 2 {
		t.Fatalf("resolution = %d, want 2", res)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	for _, v := range records[0] {
		if v != svdag.SentinelSolid {
			t.Fatalf("expected all-SOLID record, got %v", records[0])
		}
	}
}

func TestRunByteGridOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	output := filepath.Join(dir, "cube.bin")

	var stdout bytes.Buffer
	code := Run([]string{"-R", "8", input, output}, &stdout, &stdout)
	if code != 0 {
		t.Fatalf("Run() = %d, want 0; stdout: %s", code, stdout.String())
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	var stdout bytes.Buffer
	code := Run([]string{"-h"}, &stdout, &stdout)
	if code != 0 {
		t.Fatalf("Run(-h) = %d, want 0", code)
	}
	if stdout.Len() == 0 {
		t.Fatalf("expected usage text")
	}
}

func TestRunMissingArgs(t *testing.T) {
	var stdout bytes.Buffer
	code := Run([]string{}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
}

func TestRunReportsUnopenableInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "cube.bin")

	var stdout bytes.Buffer
	code := Run([]string{filepath.Join(dir, "missing.obj"), output}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 for a missing input file", code)
	}
}

func TestRunReportsMeshParseFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.obj")
	if err := os.WriteFile(input, []byte("# no geometry here\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	output := filepath.Join(dir, "cube.bin")

	var stdout bytes.Buffer
	code := Run([]string{input, output}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 for a mesh with no vertices", code)
	}
}

func TestRunRejectsNonPowerOfTwoResolutionForSVDAG(t *testing.T) {
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	output := filepath.Join(dir, "cube.svo")

	var stdout bytes.Buffer
	code := Run([]string{"-S", "-R", "9", input, output}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 for non-power-of-two resolution with -S", code)
	}
}

func TestRunRejectsSubdivisionLevelWithoutSVDAG(t *testing.T) {
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	output := filepath.Join(dir, "cube.bin")

	var stdout bytes.Buffer
	code := Run([]string{"-L", "1", input, output}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 when -L is set without -S/--voxel-to-svdag", code)
	}
}

func TestRunRejectsBadScaleMode(t *testing.T) {
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	output := filepath.Join(dir, "cube.bin")

	var stdout bytes.Buffer
	code := Run([]string{"--scale-mode", "bogus", input, output}, &stdout, &stdout)
	if code != 1 {
		t.Fatalf("Run() = %d, want 1 for invalid --scale-mode", code)
	}
}

func TestRunVoxelToSVDAGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := writeUnitCubeOBJ(t, dir)
	gridPath := filepath.Join(dir, "cube.bin")
	svoPath := filepath.Join(dir, "cube.svo")

	var stdout bytes.Buffer
	if code := Run([]string{"-R", "4", "--scale-mode", "stretch", input, gridPath}, &stdout, &stdout); code != 0 {
		t.Fatalf("first Run() = %d, want 0; stdout: %s", code, stdout.String())
	}

	stdout.Reset()
	if code := Run([]string{"--voxel-to-svdag", gridPath, svoPath}, &stdout, &stdout); code != 0 {
		t.Fatalf("second Run() = %d, want 0; stdout: %s", code, stdout.String())
	}

	if _, _, err := svdag.ReadFile(svoPath); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
}
