package reconcile

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synclite/synclite/internal/syncstate"
)

func t0(offsetSeconds int) time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(offsetSeconds) * time.Second)
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func swap(r Result) Result {
	return Result{ASend: r.BSend, BSend: r.ASend, ADel: r.BDel, BDel: r.ADel, Conflicts: r.Conflicts}
}

func requireResultEqual(t *testing.T, want, got Result) {
	t.Helper()
	require.Equal(t, sortedCopy(want.ASend), sortedCopy(got.ASend))
	require.Equal(t, sortedCopy(want.BSend), sortedCopy(got.BSend))
	require.Equal(t, sortedCopy(want.ADel), sortedCopy(got.ADel))
	require.Equal(t, sortedCopy(want.BDel), sortedCopy(got.BDel))
	require.Equal(t, sortedCopy(want.Conflicts), sortedCopy(got.Conflicts))
}

func TestRun_ASendWhenOnlyAHasFile(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Live("h1", t0(0))}
	b := syncstate.Map{}

	res := Run(a, b)
	requireResultEqual(t, Result{ASend: []string{"a.txt"}}, res)
}

func TestRun_BDelWhenOnlyATombstoned(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Tombstone(t0(0))}
	b := syncstate.Map{}

	res := Run(a, b)
	requireResultEqual(t, Result{BDel: []string{"a.txt"}}, res)
}

func TestRun_NoActionWhenHashesEqual(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Live("h1", t0(0))}
	b := syncstate.Map{"a.txt": syncstate.Live("h1", t0(100))}

	res := Run(a, b)
	require.True(t, res.Empty())
}

func TestRun_NewerWinsOnConflict(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Live("h1", t0(0))}
	b := syncstate.Map{"a.txt": syncstate.Live("h2", t0(1))}

	res := Run(a, b)
	requireResultEqual(t, Result{BSend: []string{"a.txt"}}, res)
}

func TestRun_TieIsNoOpButRecordedAsConflict(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Live("h1", t0(5))}
	b := syncstate.Map{"a.txt": syncstate.Live("h2", t0(5))}

	res := Run(a, b)
	require.True(t, res.Empty())
	require.Equal(t, []string{"a.txt"}, res.Conflicts)
}

func TestRun_TombstoneWinsOverLive(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Tombstone(t0(10))}
	b := syncstate.Map{"a.txt": syncstate.Live("h1", t0(1))}

	res := Run(a, b)
	requireResultEqual(t, Result{BDel: []string{"a.txt"}}, res)
}

// reconcile(A,B) must equal swap(reconcile(B,A)): the rule table has no
// built-in bias toward whichever side happens to be passed first.
func TestRun_Symmetry(t *testing.T) {
	a := syncstate.Map{
		"same.txt":       syncstate.Live("h1", t0(0)),
		"a-only.txt":     syncstate.Live("h2", t0(0)),
		"a-wins.txt":     syncstate.Live("h3", t0(10)),
		"tombstoned.txt": syncstate.Tombstone(t0(20)),
	}
	b := syncstate.Map{
		"same.txt":       syncstate.Live("h1", t0(5)),
		"b-only.txt":     syncstate.Live("h4", t0(0)),
		"a-wins.txt":     syncstate.Live("h5", t0(1)),
		"tombstoned.txt": syncstate.Live("h6", t0(1)),
	}

	ab := Run(a, b)
	ba := Run(b, a)

	requireResultEqual(t, ab, swap(ba))
}

// Equivalent states on every shared path must produce no actions at all.
func TestRun_Fixpoint(t *testing.T) {
	a := syncstate.Map{
		"live.txt": syncstate.Live("h1", t0(0)),
		"dead.txt": syncstate.Tombstone(t0(5)),
	}
	b := syncstate.Map{
		"live.txt": syncstate.Live("h1", t0(999)), // different timestamp, same hash: still equivalent
		"dead.txt": syncstate.Tombstone(t0(5)),
	}

	res := Run(a, b)
	require.True(t, res.Empty())
}

// A strictly-newer tombstone on one side beats a live entry on the other,
// and the live side is told to delete.
func TestRun_MonotonicTombstone(t *testing.T) {
	a := syncstate.Map{"a.txt": syncstate.Live("h1", t0(0))}
	b := syncstate.Map{"a.txt": syncstate.Tombstone(t0(1))}

	res := Run(a, b)
	requireResultEqual(t, Result{ADel: []string{"a.txt"}}, res)
}

func TestRun_Deterministic(t *testing.T) {
	a := syncstate.Map{
		"x.txt": syncstate.Live("h1", t0(0)),
		"y.txt": syncstate.Tombstone(t0(3)),
	}
	b := syncstate.Map{
		"x.txt": syncstate.Live("h2", t0(1)),
		"z.txt": syncstate.Live("h3", t0(0)),
	}

	first := Run(a, b)
	second := Run(a, b)
	requireResultEqual(t, first, second)
}
