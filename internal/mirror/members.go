package mirror

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/source"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Mode selects how MemberMirror writes a fragment.
type Mode struct {
	filtered bool
	after    time.Time
}

// Full replaces the fragment with every current member of the page.
func Full() Mode { return Mode{} }

// After appends the members created strictly after t and never touches
// existing fragment content.
func After(t time.Time) Mode { return Mode{filtered: true, after: t} }

// Filtered reports whether m is an After mode.

func (m Mode) String() string {
	if m.filtered {
		return "after " + tree.FormatTime(m.after)
	}
	return "full"
}

// Page is a source page to mirror. When Graph is nil it is fetched.
type Page struct {
	Locator  string
	Boundary time.Time
	Graph    tree.Graph
}

// MirrorResult describes one fragment write.
type MirrorResult struct {
	Fragment string
	Members  int
	Written  bool
}

// MemberMirror copies the member list of source pages into mirror fragments.
type MemberMirror struct {
	reader     source.Reader
	store      resource.Store
	translator *Translator
	logger     *slog.Logger
}

// NewMemberMirror returns a MemberMirror writing to store.
func NewMemberMirror(reader source.Reader, store resource.Store, translator *Translator, logger *slog.Logger) *MemberMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemberMirror{reader: reader, store: store, translator: translator, logger: logger}
}

// Mirror writes the members of page to its fragment.
//
// Every member must have a dct:modified xsd:dateTime; otherwise nothing is
// written and a MALFORMED_SOURCE error is returned. A rejected write is a
// WRITE_FAILURE error. An After mode with no qualifying member writes nothing.
func (m *MemberMirror) Mirror(ctx context.Context, page Page, mode Mode) (MirrorResult, error) {
	fragment, err := m.translator.ToMirror(page.Locator)
	if err != nil {
		return MirrorResult{}, newSyncError(ErrCodeMalformedSource, page.Locator, err, "page outside source namespace")
	}
	result := MirrorResult{Fragment: fragment}

	g := page.Graph
	if g == nil {
		g, err = m.reader.Get(ctx, page.Locator)
		if err != nil {
			return result, &source.FetchError{Locator: page.Locator, Err: err}
		}
	}

	members, err := tree.ParseMembers(g, page.Locator)
	if err != nil {
		return result, newSyncError(ErrCodeMalformedSource, page.Locator, err, "unreadable page members")
	}

	collection := m.translator.SourceCollection()
	decl := tree.T(tree.IRI(collection), tree.RDFType, tree.IRI(tree.TreeCollection))
	all := tree.Graph{decl}
	selected := tree.Graph{decl}
	for _, member := range members {
		if !page.Boundary.IsZero() && member.CreatedAt.Before(page.Boundary) {
			m.logger.Warn("member predates page boundary",
				"page", page.Locator,
				"member", member.ID,
				"created", tree.FormatTime(member.CreatedAt),
				"boundary", tree.FormatTime(page.Boundary),
			)
		}
		records := tree.MemberTriples(collection, member)
		all = append(all, records...)
		if !mode.filtered || member.CreatedAt.After(mode.after) {
			selected = append(selected, records...)
			result.Members++
		}
	}

	switch {
	case !mode.filtered:
		err = m.store.Put(ctx, fragment, all)
	case result.Members == 0:
		return result, nil
	default:
		err = m.store.Patch(ctx, fragment, selected, nil)
		if errors.Is(err, resource.ErrConflict) {
			// The fragment is gone; rebuild it from the full page.
			if ok, existsErr := resource.Exists(ctx, m.store, fragment); existsErr == nil && !ok {
				m.logger.Warn("open fragment missing, rebuilding", "fragment", fragment)
				result.Members = len(members)
				err = m.store.Put(ctx, fragment, all)
			}
		}
	}
	if err != nil {
		return result, newSyncError(ErrCodeWriteFailure, fragment, err, "write fragment (%s)", mode)
	}

	result.Written = true
	m.logger.Debug("fragment written",
		"page", page.Locator,
		"fragment", fragment,
		"mode", mode.String(),
		"members", result.Members,
	)
	return result, nil
}
