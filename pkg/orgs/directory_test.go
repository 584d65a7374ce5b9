package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for traversal tests. Parent links are
// taken as-is, so tests can wire up cycles and diamonds that the write path
// would never produce.
type fakeStore struct {
	orgs  map[string]*Organization
	fail  error
	calls int
}

func newFakeStore(orgs ...*Organization) *fakeStore {
	s := &fakeStore{orgs: make(map[string]*Organization)}
	for _, o := range orgs {
		s.orgs[o.ID] = o
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*Organization, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *org
	return &copy, nil
}

func (s *fakeStore) FindChildren(ctx context.Context, parentID string) ([]Organization, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	var children []Organization
	for _, org := range s.orgs {
		if org.ParentID == parentID && org.IsActive {
			children = append(children, *org)
		}
	}
	return children, nil
}

func (s *fakeStore) ListActive(ctx context.Context) ([]Organization, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	var out []Organization
	for _, org := range s.orgs {
		if org.IsActive {
			out = append(out, *org)
		}
	}
	return out, nil
}

func org(id, parentID string, level int) *Organization {
	return &Organization{ID: id, ParentID: parentID, Level: level, IsActive: true}
}

func inactiveOrg(id, parentID string, level int) *Organization {
	o := org(id, parentID, level)
	o.IsActive = false
	return o
}

// threeLevelTree: root -> eng -> frontend, plus a sibling "sales" under root.
func threeLevelTree() *fakeStore {
	return newFakeStore(
		org("root", "", 0),
		org("eng", "root", 1),
		org("frontend", "eng", 2),
		org("sales", "root", 1),
	)
}

func newTestDirectory(store Store) *Directory {
	return NewDirectory(store, DirectoryConfig{}) // cache disabled
}

func TestDescendants(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(threeLevelTree())

	set, err := dir.Descendants(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{
		"root": {}, "eng": {}, "frontend": {}, "sales": {},
	}, set)

	set, err = dir.Descendants(ctx, "eng")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"eng": {}, "frontend": {}}, set)

	// Leaf yields the singleton set containing itself.
	set, err = dir.Descendants(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"frontend": {}}, set)
}

func TestDescendantsUnknownOrInactive(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	store.orgs["ghost"] = inactiveOrg("ghost", "root", 1)
	dir := newTestDirectory(store)

	set, err := dir.Descendants(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, set)

	set, err = dir.Descendants(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestDescendantsSkipsInactiveSubtree(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	// Deactivating eng hides frontend too, even though frontend is active.
	store.orgs["eng"].IsActive = false
	dir := newTestDirectory(store)

	set, err := dir.Descendants(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"root": {}, "sales": {}}, set)
}

func TestDescendantsCycleTerminates(t *testing.T) {
	ctx := context.Background()
	// a -> b -> c -> a, a malformed cycle.
	store := newFakeStore(
		org("a", "c", 0),
		org("b", "a", 1),
		org("c", "b", 2),
	)
	dir := newTestDirectory(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		set, err := dir.Descendants(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, set)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("descendant traversal did not terminate on a cyclic tree")
	}
}

func TestDescendantsDiamondVisitedOnce(t *testing.T) {
	ctx := context.Background()
	// "shared" is erroneously reachable from both b and c; the visited set
	// must keep it from being double-queued.
	store := newFakeStore(
		org("a", "", 0),
		org("b", "a", 1),
		org("c", "a", 1),
		org("shared", "b", 2),
	)
	// FindChildren matches on ParentID, so fake the second link by also
	// parenting a duplicate record under c.
	store.orgs["shared2"] = org("shared", "c", 2)
	dir := newTestDirectory(store)

	set, err := dir.Descendants(ctx, "a")
	require.NoError(t, err)
	assert.Contains(t, set, "shared")
	assert.Len(t, set, 4)
}

func TestDescendantsBatchLoadParity(t *testing.T) {
	ctx := context.Background()
	perLevel := newTestDirectory(threeLevelTree())
	inMemory := NewDirectory(threeLevelTree(), DirectoryConfig{BatchLoad: true})

	for _, id := range []string{"root", "eng", "frontend", "sales", "nope"} {
		want, err := perLevel.Descendants(ctx, id)
		require.NoError(t, err)
		got, err := inMemory.Descendants(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "mismatch for %s", id)
	}
}

func TestAncestors(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(threeLevelTree())

	set, err := dir.Ancestors(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"frontend": {}, "eng": {}, "root": {}}, set)

	// Includes itself even at the root.
	set, err = dir.Ancestors(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"root": {}}, set)

	set, err = dir.Ancestors(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestAncestorsStopAtInactiveParent(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	store.orgs["eng"].IsActive = false
	dir := newTestDirectory(store)

	set, err := dir.Ancestors(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"frontend": {}}, set)
}

func TestAncestorsCycleTerminates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(
		org("a", "b", 0),
		org("b", "a", 1),
	)
	dir := newTestDirectory(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		set, err := dir.Ancestors(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ancestor walk did not terminate on a cyclic parent chain")
	}
}

func TestIsDescendantOf(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(threeLevelTree())

	tests := []struct {
		name       string
		candidate  string
		ancestor   string
		expected   bool
	}{
		{name: "grandchild of root", candidate: "frontend", ancestor: "root", expected: true},
		{name: "child of parent", candidate: "frontend", ancestor: "eng", expected: true},
		{name: "self", candidate: "eng", ancestor: "eng", expected: true},
		{name: "inverted", candidate: "root", ancestor: "frontend", expected: false},
		{name: "sibling", candidate: "sales", ancestor: "eng", expected: false},
		{name: "unknown candidate", candidate: "nope", ancestor: "root", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dir.IsDescendantOf(ctx, tt.candidate, tt.ancestor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsAncestorOf(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(threeLevelTree())

	got, err := dir.IsAncestorOf(ctx, "root", "frontend")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = dir.IsAncestorOf(ctx, "frontend", "root")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = dir.IsAncestorOf(ctx, "eng", "eng")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRoot(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(threeLevelTree())

	rootID, err := dir.Root(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, "root", rootID)

	rootID, err = dir.Root(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", rootID)

	rootID, err = dir.Root(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "", rootID)
}

func TestLevel(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	store.orgs["ghost"] = inactiveOrg("ghost", "root", 1)
	dir := newTestDirectory(store)

	level, err := dir.Level(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	level, err = dir.Level(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	level, err = dir.Level(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	level, err = dir.Level(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestDescendantsPropagatesStoreFault(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	store.fail = errors.New("connection refused")
	dir := newTestDirectory(store)

	_, err := dir.Descendants(ctx, "root")
	assert.Error(t, err)
}

func TestDescendantsCaching(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	dir := NewDirectory(store, DirectoryConfig{CacheSize: 16, CacheTTL: time.Minute})

	first, err := dir.Descendants(ctx, "root")
	require.NoError(t, err)
	callsAfterFirst := store.calls

	second, err := dir.Descendants(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, store.calls, "cached lookup should not hit the store")

	// Mutating a returned set must not poison the cache.
	second["injected"] = struct{}{}
	third, err := dir.Descendants(ctx, "root")
	require.NoError(t, err)
	assert.NotContains(t, third, "injected")
}

func TestActiveIDs(t *testing.T) {
	ctx := context.Background()
	store := threeLevelTree()
	store.orgs["ghost"] = inactiveOrg("ghost", "root", 1)
	dir := newTestDirectory(store)

	ids, err := dir.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{
		"root": {}, "eng": {}, "frontend": {}, "sales": {},
	}, ids)
}
