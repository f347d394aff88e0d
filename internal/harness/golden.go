package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ldesmirror/internal/tree"
)

// Snapshot renders a result as canonical JSON: every cycle report and the
// final mirror. Durations and start times are left out; the fake clock
// makes cursors deterministic.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	cycles := make([]any, 0, len(result.Cycles))
	for _, c := range result.Cycles {
		m := map[string]any{"step": c.Step}
		if c.Code != "" {
			m["error"] = string(c.Code)
		}
		if r := c.Report; r != nil {
			m["cycle"] = r.Cycle
			m["mode"] = string(r.Mode)
			m["committed"] = r.Committed
			m["pages_mirrored"] = r.PagesMirrored
			m["pages_skipped"] = r.PagesSkipped
			m["pages_failed"] = r.PagesFailed
			m["members_written"] = r.MembersWritten
			m["relations_added"] = r.RelationsAdded
			if len(r.FailedLocators) > 0 {
				m["failed"] = r.FailedLocators
			}
			if !r.CursorAfter.IsZero() {
				m["cursor"] = tree.FormatTime(r.CursorAfter)
			}
		}
		cycles = append(cycles, m)
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"cycles":        cycles,
	}
	if s := result.Mirror; s != nil {
		relations := make([]any, len(s.Relations))
		for i, r := range s.Relations {
			relations[i] = map[string]any{
				"node":     r.Node,
				"boundary": tree.FormatTime(r.Boundary),
			}
		}
		fragments := make(map[string]any, len(s.Fragments))
		for loc, ids := range s.Fragments {
			fragments[loc] = ids
		}
		m := map[string]any{
			"bootstrapped": s.Bootstrapped,
			"relations":    relations,
			"fragments":    fragments,
		}
		if s.Bootstrapped {
			m["cursor"] = tree.FormatTime(s.Cursor)
		}
		snapshot["mirror"] = m
	}

	data, err := tree.MarshalCanonical(snapshot)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t, scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
