package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/ldesmirror/internal/tree"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // cmp diff, when the values are lists
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-want +got):\n%s", e.Diff)
	}
	return buf.String()
}

func pageLocator(page string) string {
	return SourceBase + page + "/"
}

func fragmentLocator(page string) string {
	return MirrorBase + page
}

func memberLocator(ref string) string {
	return SourceBase + ref
}

func listError(typ string, want, got []string) error {
	diff := cmp.Diff(want, got, cmpopts.EquateEmpty())
	if diff == "" {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
		Diff:     diff,
	}
}

// assertRelations checks that the mirror root links exactly the named pages.
func assertRelations(state *MirrorState, a Assertion) error {
	want := make([]string, len(a.Pages))
	for i, p := range a.Pages {
		want[i] = fragmentLocator(p)
	}
	slices.Sort(want)

	got := make([]string, len(state.Relations))
	for i, r := range state.Relations {
		got[i] = r.Node
	}
	slices.Sort(got)
	return listError(AssertRelations, want, got)
}

// assertFragment checks that the fragment of a page holds exactly the named
// members.
func assertFragment(state *MirrorState, a Assertion) error {
	fragment := fragmentLocator(a.Page)
	got, ok := state.Fragments[fragment]
	if !ok {
		return &AssertionError{
			Type:     AssertFragment,
			Expected: fmt.Sprintf("fragment %s", fragment),
			Actual:   "not linked from the mirror root",
		}
	}

	want := make([]string, len(a.Members))
	for i, m := range a.Members {
		want[i] = pageLocator(a.Page) + m
	}
	slices.Sort(want)
	return listError(AssertFragment, want, got)
}

// assertRecent checks the order of the recent member listing.
func assertRecent(state *MirrorState, a Assertion) error {
	want := make([]string, len(a.Members))
	for i, ref := range a.Members {
		want[i] = memberLocator(ref)
	}
	return listError(AssertRecent, want, state.Recent)
}

func assertCursor(state *MirrorState, a Assertion) error {
	want := a.At.Time()
	if !state.Bootstrapped || !state.Cursor.Equal(want) {
		actual := "no cursor"
		if state.Bootstrapped {
			actual = tree.FormatTime(state.Cursor)
		}
		return &AssertionError{
			Type:     AssertCursor,
			Expected: tree.FormatTime(want),
			Actual:   actual,
		}
	}
	return nil
}

func assertBootstrapped(state *MirrorState, a Assertion) error {
	if state.Bootstrapped != a.Value {
		return &AssertionError{
			Type:     AssertBootstrapped,
			Expected: fmt.Sprint(a.Value),
			Actual:   fmt.Sprint(state.Bootstrapped),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		if result.Mirror == nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: mirror state unavailable", i))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertRelations:
			err = assertRelations(result.Mirror, assertion)
		case AssertFragment:
			err = assertFragment(result.Mirror, assertion)
		case AssertRecent:
			err = assertRecent(result.Mirror, assertion)
		case AssertCursor:
			err = assertCursor(result.Mirror, assertion)
		case AssertBootstrapped:
			err = assertBootstrapped(result.Mirror, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
