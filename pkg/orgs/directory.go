package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DirectoryConfig configures hierarchy traversal behavior.
type DirectoryConfig struct {
	// CacheSize is the max number of descendant sets kept in the LRU.
	CacheSize int
	// CacheTTL bounds staleness of cached descendant sets. Zero disables
	// caching entirely.
	CacheTTL time.Duration
	// BatchLoad makes Descendants load the whole active organization set in
	// one query and traverse in memory, instead of one child query per tree
	// level. Same contract, fewer round trips on deep trees.
	BatchLoad bool
}

// DefaultDirectoryConfig returns the settings used by the server.
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		CacheSize: 1024,
		CacheTTL:  time.Minute,
	}
}

// Directory answers hierarchy questions over the organization tree, treating
// inactive organizations as absent. Safe for concurrent use.
type Directory struct {
	store  Store
	config DirectoryConfig
	cache  *expirable.LRU[string, map[string]struct{}]
}

// NewDirectory creates a Directory over the given store.
func NewDirectory(store Store, config DirectoryConfig) *Directory {
	d := &Directory{
		store:  store,
		config: config,
	}
	if config.CacheTTL > 0 {
		size := config.CacheSize
		if size <= 0 {
			size = 1024
		}
		d.cache = expirable.NewLRU[string, map[string]struct{}](size, nil, config.CacheTTL)
	}
	return d
}

// Descendants returns the ids of orgID and every active organization below
// it. Unknown or inactive ids yield the empty set. The traversal keeps a
// visited set so a cycle or a child erroneously linked under two ancestors is
// visited once and never loops.
func (d *Directory) Descendants(ctx context.Context, orgID string) (map[string]struct{}, error) {
	if d.cache != nil {
		if cached, ok := d.cache.Get(orgID); ok {
			return copySet(cached), nil
		}
	}

	origin, err := d.store.FindByID(ctx, orgID)
	if errors.Is(err, ErrNotFound) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization %s: %w", orgID, err)
	}
	if !origin.IsActive {
		return map[string]struct{}{}, nil
	}

	var set map[string]struct{}
	if d.config.BatchLoad {
		set, err = d.descendantsInMemory(ctx, orgID)
	} else {
		set, err = d.descendantsByLevel(ctx, orgID)
	}
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.cache.Add(orgID, set)
	}
	return copySet(set), nil
}

// descendantsByLevel walks breadth-first, one child query per queued node.
func (d *Directory) descendantsByLevel(ctx context.Context, orgID string) (map[string]struct{}, error) {
	visited := map[string]struct{}{orgID: {}}
	queue := []string{orgID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := d.store.FindChildren(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to load children of %s: %w", current, err)
		}
		for _, child := range children {
			if !child.IsActive {
				continue
			}
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}
			queue = append(queue, child.ID)
		}
	}
	return visited, nil
}

// descendantsInMemory batch-loads all active organizations once and walks the
// child index in memory. Preserves the visited-set and active-only contracts.
func (d *Directory) descendantsInMemory(ctx context.Context, orgID string) (map[string]struct{}, error) {
	all, err := d.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}

	childIndex := make(map[string][]string, len(all))
	for _, org := range all {
		if org.ParentID != "" {
			childIndex[org.ParentID] = append(childIndex[org.ParentID], org.ID)
		}
	}

	visited := map[string]struct{}{orgID: {}}
	queue := []string{orgID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range childIndex[current] {
			if _, seen := visited[childID]; seen {
				continue
			}
			visited[childID] = struct{}{}
			queue = append(queue, childID)
		}
	}
	return visited, nil
}

// Ancestors returns the ids of orgID and every organization above it,
// stopping at the root or at the first inactive ancestor. Unknown or
// inactive ids yield the empty set.
func (d *Directory) Ancestors(ctx context.Context, orgID string) (map[string]struct{}, error) {
	chain, err := d.ancestorChain(ctx, orgID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(chain))
	for _, id := range chain {
		set[id] = struct{}{}
	}
	return set, nil
}

// ancestorChain walks ParentID links upward from orgID (inclusive), in order.
// A malformed cycle terminates at the first revisit instead of looping.
func (d *Directory) ancestorChain(ctx context.Context, orgID string) ([]string, error) {
	org, err := d.store.FindByID(ctx, orgID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization %s: %w", orgID, err)
	}
	if !org.IsActive {
		return nil, nil
	}

	chain := []string{org.ID}
	visited := map[string]struct{}{org.ID: {}}

	for org.ParentID != "" {
		parent, err := d.store.FindByID(ctx, org.ParentID)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization %s: %w", org.ParentID, err)
		}
		if !parent.IsActive {
			break
		}
		if _, seen := visited[parent.ID]; seen {
			break
		}
		visited[parent.ID] = struct{}{}
		chain = append(chain, parent.ID)
		org = parent
	}
	return chain, nil
}

// IsDescendantOf reports whether candidateID sits at or below ancestorID.
// An organization is a descendant of itself.
func (d *Directory) IsDescendantOf(ctx context.Context, candidateID, ancestorID string) (bool, error) {
	ancestors, err := d.Ancestors(ctx, candidateID)
	if err != nil {
		return false, err
	}
	_, ok := ancestors[ancestorID]
	return ok, nil
}

// IsAncestorOf reports whether candidateID is reachable downward from
// ancestorID. Symmetric counterpart of IsDescendantOf.
func (d *Directory) IsAncestorOf(ctx context.Context, ancestorID, candidateID string) (bool, error) {
	descendants, err := d.Descendants(ctx, ancestorID)
	if err != nil {
		return false, err
	}
	_, ok := descendants[candidateID]
	return ok, nil
}

// Root returns the topmost organization reachable from orgID, or "" if orgID
// is unknown or inactive.
func (d *Directory) Root(ctx context.Context, orgID string) (string, error) {
	chain, err := d.ancestorChain(ctx, orgID)
	if err != nil {
		return "", err
	}
	if len(chain) == 0 {
		return "", nil
	}
	return chain[len(chain)-1], nil
}

// Level returns the stored depth of orgID, or 0 if unknown or inactive.
func (d *Directory) Level(ctx context.Context, orgID string) (int, error) {
	org, err := d.store.FindByID(ctx, orgID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve organization %s: %w", orgID, err)
	}
	if !org.IsActive {
		return 0, nil
	}
	return org.Level, nil
}

// ActiveIDs returns the ids of every active organization.
func (d *Directory) ActiveIDs(ctx context.Context) (map[string]struct{}, error) {
	all, err := d.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}
	set := make(map[string]struct{}, len(all))
	for _, org := range all {
		set[org.ID] = struct{}{}
	}
	return set, nil
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
