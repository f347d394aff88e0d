package mirror

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Recent returns mirrored members newest first, skipping the first offset
// and returning at most limit. A limit of zero or less returns every member
// after offset. Member.Page is the fragment that records the member.
func Recent(ctx context.Context, store resource.Store, translator *Translator, limit, offset int) ([]tree.Member, error) {
	root := translator.MirrorRoot()
	g, err := store.Get(ctx, root)
	if errors.Is(err, resource.ErrNotFound) {
		return nil, newSyncError(ErrCodeNotBootstrapped, root, err, "mirror root does not exist")
	}
	if err != nil {
		return nil, newSyncError(ErrCodeMirrorUnavailable, root, err, "read mirror root")
	}
	index, err := NewRelationIndex(g, root)
	if err != nil {
		return nil, err
	}

	relations := index.Relations()
	perFragment := make([][]tree.Member, len(relations))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(DefaultConcurrency)
	for i, rel := range relations {
		eg.Go(func() error {
			fg, err := store.Get(ectx, rel.Node)
			if err != nil {
				return newSyncError(ErrCodeMalformedMirror, rel.Node, err, "read fragment")
			}
			members, err := tree.FragmentMembers(fg, translator.SourceCollection(), rel.Node)
			if err != nil {
				return newSyncError(ErrCodeMalformedMirror, rel.Node, err, "read fragment members")
			}
			perFragment[i] = members
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// A member recorded by more than one fragment is listed once, with its
	// newest record.
	var all []tree.Member
	seen := make(map[string]int)
	for _, members := range perFragment {
		for _, m := range members {
			i, ok := seen[m.ID]
			if !ok {
				seen[m.ID] = len(all)
				all = append(all, m)
				continue
			}
			if m.CreatedAt.After(all[i].CreatedAt) {
				all[i] = m
			}
		}
	}
	slices.SortFunc(all, func(a, b tree.Member) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	offset = max(offset, 0)
	if offset >= len(all) {
		return []tree.Member{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
