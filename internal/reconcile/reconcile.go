// Package reconcile implements the pure last-writer-wins comparison
// between two sync states. It has no side effects and no knowledge of
// disk, network, or time beyond what's embedded in the FileEntry
// timestamps it's handed.
package reconcile

import "github.com/synclite/synclite/internal/syncstate"

// Result is the four path lists produced by comparing side A against
// side B.
type Result struct {
	// ASend are paths whose content A must deliver to B.
	ASend []string
	// BSend are paths whose content B must deliver to A.
	BSend []string
	// ADel are paths A must delete locally (B is the authority).
	ADel []string
	// BDel are paths B must delete locally (A is the authority).
	BDel []string
	// Conflicts are paths with equal last_modified timestamps whose
	// entries are not equivalent (differing live content, or one live and
	// one tombstone): a genuine tie neither side's clock can resolve. Reported for observability only; both sides keep their
	// own copy.
	Conflicts []string
}

// Empty reports whether all four action lists are empty. Conflicts don't
// count: they carry no pending action for either side.
func (r Result) Empty() bool {
	return len(r.ASend) == 0 && len(r.BSend) == 0 && len(r.ADel) == 0 && len(r.BDel) == 0
}

// Run compares sync states a and b and returns the four-way reconciliation
// decision for every path named by either side. Ties (equal last_modified
// on differing entries) are a no-op: none of the four action lists gains
// the path, which is recorded in Conflicts instead.
//
// Run(a, b) and Run(b, a) are swaps of each other's four lists
// (A<->B, ASend<->BSend, ADel<->BDel) — see reconcile_test.go.
func Run(a, b syncstate.Map) Result {
	var res Result

	seen := make(map[string]struct{}, len(a)+len(b))
	for p := range a {
		seen[p] = struct{}{}
	}
	for p := range b {
		seen[p] = struct{}{}
	}

	for path := range seen {
		ea, hasA := a[path]
		eb, hasB := b[path]

		switch {
		case hasA && !hasB:
			// A wins by default: B has nothing to compare against.
			if ea.IsDeleted {
				res.BDel = append(res.BDel, path)
			} else {
				res.ASend = append(res.ASend, path)
			}

		case !hasA && hasB:
			if eb.IsDeleted {
				res.ADel = append(res.ADel, path)
			} else {
				res.BSend = append(res.BSend, path)
			}

		case ea.Equivalent(eb):
			// identical content or matching tombstones: no action

		case ea.LastModified.After(eb.LastModified):
			if ea.IsDeleted {
				res.BDel = append(res.BDel, path)
			} else {
				res.ASend = append(res.ASend, path)
			}

		case eb.LastModified.After(ea.LastModified):
			if eb.IsDeleted {
				res.ADel = append(res.ADel, path)
			} else {
				res.BSend = append(res.BSend, path)
			}

		default:
			// equal timestamps with differing content: a genuine
			// conflict, treated as a no-op rather than guessing a winner
			res.Conflicts = append(res.Conflicts, path)
		}
	}

	return res
}
