package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ldesmirror/internal/testutil"
)

// Scenario defines a sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Concurrency bounds parallel page work. Zero means the engine default.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Setup lists the pages present before the first step.
	Setup []PageSpec `yaml:"setup,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions check the final mirror.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PageSpec describes a source page and its initial members.
type PageSpec struct {
	Page     string       `yaml:"page"`
	Boundary Offset       `yaml:"boundary"`
	Members  []MemberSpec `yaml:"members,omitempty"`
}

// MemberSpec describes one member. Page is only used by add_member.
type MemberSpec struct {
	Page string `yaml:"page,omitempty"`
	Name string `yaml:"name"`
	At   Offset `yaml:"at"`

	// Untimed omits dct:modified, making the page malformed.
	Untimed bool `yaml:"untimed,omitempty"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Sync       *SyncExpect `yaml:"sync,omitempty"`
	AddPage    *PageSpec   `yaml:"add_page,omitempty"`
	AddMember  *MemberSpec `yaml:"add_member,omitempty"`
	Advance    Offset      `yaml:"advance,omitempty"`
	FailReads  []string    `yaml:"fail_reads,omitempty"`
	FailWrites []string    `yaml:"fail_writes,omitempty"`
	Heal       bool        `yaml:"heal,omitempty"`
}

// kind names the action of s, or "" when none or several are set.
func (s Step) kind() string {
	var kinds []string
	if s.Sync != nil {
		kinds = append(kinds, "sync")
	}
	if s.AddPage != nil {
		kinds = append(kinds, "add_page")
	}
	if s.AddMember != nil {
		kinds = append(kinds, "add_member")
	}
	if s.Advance != 0 {
		kinds = append(kinds, "advance")
	}
	if len(s.FailReads) > 0 {
		kinds = append(kinds, "fail_reads")
	}
	if len(s.FailWrites) > 0 {
		kinds = append(kinds, "fail_writes")
	}
	if s.Heal {
		kinds = append(kinds, "heal")
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// SyncExpect runs one cycle and checks its report. Unset fields are not
// checked. An empty Error means the cycle must succeed.
type SyncExpect struct {
	Error          string `yaml:"error,omitempty"`
	Mode           string `yaml:"mode,omitempty"`
	PagesMirrored  *int   `yaml:"pages_mirrored,omitempty"`
	PagesSkipped   *int   `yaml:"pages_skipped,omitempty"`
	PagesFailed    *int   `yaml:"pages_failed,omitempty"`
	MembersWritten *int   `yaml:"members_written,omitempty"`
	RelationsAdded *int   `yaml:"relations_added,omitempty"`
	Committed      *bool  `yaml:"committed,omitempty"`
}

// Assertion checks the final mirror.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Page names the fragment (fragment).
	Page string `yaml:"page,omitempty"`

	// Pages lists the expected relations (relations).
	Pages []string `yaml:"pages,omitempty"`

	// Members lists member names (fragment) or page/name pairs (recent).
	Members []string `yaml:"members,omitempty"`

	// At is the expected cursor (cursor).
	At Offset `yaml:"at,omitempty"`

	// Value is the expected flag (bootstrapped).
	Value bool `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertRelations    = "relations"
	AssertFragment     = "fragment"
	AssertRecent       = "recent"
	AssertCursor       = "cursor"
	AssertBootstrapped = "bootstrapped"
)

var assertionTypes = []string{AssertRelations, AssertFragment, AssertRecent, AssertCursor, AssertBootstrapped}

// Offset is a duration relative to testutil.Epoch, written in
// time.ParseDuration syntax.
type Offset time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*o = Offset(d)
	return nil
}

// Time returns the instant o designates.
func (o Offset) Time() time.Time {
	return testutil.Epoch.Add(time.Duration(o))
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	pages := make(map[string]bool)
	for i, p := range s.Setup {
		if err := validatePage(p, pages); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		switch step.kind() {
		case "":
			return fmt.Errorf("steps[%d]: exactly one action is required", i)
		case "add_page":
			if err := validatePage(*step.AddPage, pages); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		case "add_member":
			if !pages[step.AddMember.Page] {
				return fmt.Errorf("steps[%d]: add_member to unknown page %q", i, step.AddMember.Page)
			}
			if step.AddMember.Name == "" {
				return fmt.Errorf("steps[%d]: member name is required", i)
			}
		case "advance":
			if step.Advance < 0 {
				return fmt.Errorf("steps[%d]: the clock cannot go back", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if !slices.Contains(assertionTypes, a.Type) {
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if a.Type == AssertFragment && a.Page == "" {
			return fmt.Errorf("assertions[%d]: fragment assertion needs a page", i)
		}
	}
	return nil
}

func validatePage(p PageSpec, seen map[string]bool) error {
	if p.Page == "" || p.Page == "root" {
		return fmt.Errorf("invalid page name %q", p.Page)
	}
	if seen[p.Page] {
		return fmt.Errorf("duplicate page %q", p.Page)
	}
	seen[p.Page] = true
	for _, m := range p.Members {
		if m.Name == "" {
			return fmt.Errorf("page %q: member name is required", p.Page)
		}
	}
	return nil
}
