// Package orgs maintains the organization tree and answers hierarchy queries.
//
// Organizations form a tree via ParentID (root has none). Deactivated
// organizations are soft-deleted (IsActive=false, rows are never removed) and
// are treated as absent by every query in this package: they terminate
// ancestor walks and are skipped by descendant traversal.
//
// # Directory
//
// Directory is the query surface the authorization engine depends on:
//
//	dir := orgs.NewDirectory(store, orgs.DirectoryConfig{CacheTTL: time.Minute})
//	ids, err := dir.Descendants(ctx, "org-eng") // org-eng and everything below it
//	ok, err := dir.IsDescendantOf(ctx, "org-frontend", "org-eng")
//
// All traversals are cycle-safe: a malformed parent chain (introduced by
// direct data manipulation, which this package does not defend against at
// write time) terminates via a visited set rather than looping. Membership,
// not order, is the contract of the returned sets.
//
// Unknown or inactive ids yield the empty set; a found-but-childless
// organization yields the singleton set containing itself.
//
// Descendant sets are cached in an expirable LRU. Reparenting that races with
// an in-flight traversal yields a stale-but-consistent answer (old tree or
// new tree, never a mix); strict linearizability is explicitly not a goal,
// since organizations mutate outside the hot authorization path.
package orgs
