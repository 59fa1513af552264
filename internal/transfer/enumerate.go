package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// Depth selects how far a share enumeration descends.
type Depth int

const (
	// OneLevel returns only the immediate children of the root.
	OneLevel Depth = iota
	// Recursive expands every directory breadth-first until no
	// directory remains unexpanded.
	Recursive
)

// ShareLister enumerates one directory level of a share across all of
// its pages. Implemented by *quark.Client.
type ShareLister interface {
	ListShareDir(ctx context.Context, ref quark.ShareRef, pdirFid string) (*quark.ShareListing, error)
}

// PlacedEntry is an enumerated entry together with the directory names
// leading to it from the enumeration root.
type PlacedEntry struct {
	Entry quark.Entry
	Path  []string // ancestor directory names below the root; nil at the root level
}

// TreeListing is the result of enumerating a share subtree: every
// entry across all requested levels, placed relative to the root.
type TreeListing struct {
	IsOwner bool
	Entries []PlacedEntry
}

// Enumerator walks share trees. Enumeration is a pure read: safe to
// retry on transport failure with the same cursor.
type Enumerator struct {
	lister ShareLister
	logger *slog.Logger
}

// NewEnumerator creates an Enumerator.
func NewEnumerator(lister ShareLister, logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Enumerator{lister: lister, logger: logger}
}

// EnumerateShare lists the share directory rootFid at the requested
// depth. Entries keep server return order; recursive expansion appends
// each level after its parent level (breadth-first), so a directory's
// children never precede the directory itself.
//
// Visited ids are tracked so a pathological remote tree (a stale id
// cycling back on itself) fails fast with ErrCycleDetected instead of
// looping forever.
func (e *Enumerator) EnumerateShare(ctx context.Context, ref quark.ShareRef, rootFid string, depth Depth) (*TreeListing, error) {
	root, err := e.lister.ListShareDir(ctx, ref, rootFid)
	if err != nil {
		return nil, err
	}

	out := &TreeListing{IsOwner: root.IsOwner}

	for _, entry := range root.Entries {
		out.Entries = append(out.Entries, PlacedEntry{Entry: entry})
	}

	if depth == OneLevel {
		return out, nil
	}

	type pendingDir struct {
		fid  string
		path []string
	}

	visited := map[string]bool{rootFid: true}

	var frontier []pendingDir

	for _, entry := range root.Entries {
		if entry.IsDir {
			frontier = append(frontier, pendingDir{fid: entry.Fid, path: []string{entry.Name}})
		}
	}

	for len(frontier) > 0 {
		var next []pendingDir

		for _, dir := range frontier {
			if visited[dir.fid] {
				return nil, fmt.Errorf("directory %s expanded twice: %w", dir.fid, ErrCycleDetected)
			}

			visited[dir.fid] = true

			listing, err := e.lister.ListShareDir(ctx, ref, dir.fid)
			if err != nil {
				return nil, err
			}

			for _, entry := range listing.Entries {
				out.Entries = append(out.Entries, PlacedEntry{Entry: entry, Path: dir.path})

				if entry.IsDir {
					childPath := make([]string, 0, len(dir.path)+1)
					childPath = append(childPath, dir.path...)
					childPath = append(childPath, entry.Name)

					next = append(next, pendingDir{fid: entry.Fid, path: childPath})
				}
			}
		}

		e.logger.Debug("expanded enumeration level",
			slog.Int("expanded", len(frontier)),
			slog.Int("next_frontier", len(next)),
			slog.Int("entries_so_far", len(out.Entries)),
		)

		frontier = next
	}

	return out, nil
}
