package compaction

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/manifest"
)

// TestPickerDataDriven exercises Picker.Pick against hand-built versions,
// grounded on the table-driven style used throughout the dialtr-pebble
// lineage's own compaction tests (picker decisions are easiest to read as
// "given this LSM shape, what gets picked" rather than as Go literals).
func TestPickerDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/picker", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "pick":
			var l0Threshold int
			td.ScanArgs(t, "l0-threshold", &l0Threshold)

			v := parseVersion(t, td.Input)
			p := NewPicker(l0Threshold)
			task := p.Pick(v)
			if task == nil {
				return "no compaction due\n"
			}
			var nums []string
			for _, f := range task.Inputs {
				nums = append(nums, strconv.FormatUint(f.FileNum, 10))
			}
			return fmt.Sprintf("L%d -> L%d: %s\n", task.Level, task.OutputLevel, strings.Join(nums, ","))
		default:
			td.Fatalf(t, "unknown command %q", td.Cmd)
			return ""
		}
	})
}

// parseVersion builds a manifest.Version from lines of the form
// "L<n>: <fileNum>:<size> <fileNum>:<size> ...".
func parseVersion(t *testing.T, input string) *manifest.Version {
	v := manifest.NewVersion(7)
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "L") {
			t.Fatalf("malformed line %q", line)
		}
		level, err := strconv.Atoi(strings.TrimPrefix(parts[0], "L"))
		if err != nil {
			t.Fatalf("malformed level in %q: %v", line, err)
		}
		for _, tok := range strings.Fields(parts[1]) {
			fv := strings.SplitN(tok, ":", 2)
			if len(fv) != 2 {
				t.Fatalf("malformed file spec %q", tok)
			}
			fileNum, err := strconv.ParseUint(fv[0], 10, 64)
			if err != nil {
				t.Fatalf("malformed file number %q: %v", fv[0], err)
			}
			size, err := strconv.ParseUint(fv[1], 10, 64)
			if err != nil {
				t.Fatalf("malformed size %q: %v", fv[1], err)
			}
			v.Levels[level] = append(v.Levels[level], &manifest.FileMetadata{
				FileNum:  fileNum,
				Size:     size,
				Smallest: base.MakeInternalKey([]byte{byte('a')}, 1, base.InternalKeyKindSet),
				Largest:  base.MakeInternalKey([]byte{byte('z')}, 1, base.InternalKeyKindSet),
			})
		}
	}
	return v
}
