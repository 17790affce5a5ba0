package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/ordering"
)

// maxReplans bounds how often a move is planned again after the store
// refused it for a concurrent change.
const maxReplans = 3

// MoveGroup moves a group to toIndex and persists the dense ordering.
func (s *Service) MoveGroup(ctx context.Context, groupRef string, toIndex int) (ordering.Batch, error) {
	var id string
	b, err := s.reorder(ctx, func(snap *model.Snapshot) (ordering.Batch, error) {
		id = groupRef
		if g, ok := snap.FindGroup(groupRef); ok {
			id = g.ID
		}
		return ordering.MoveGroup(snap.Groups, id, toIndex)
	})
	if err != nil {
		s.log.Warn("group move rejected", "group", groupRef, "to", toIndex, "error", err)
		return ordering.Batch{}, err
	}
	s.record(ctx, ActionReorder, string(b.Scope), "moved group %s to %d", id, toIndex)
	return b, nil
}

// MoveCategory moves a category into a group at toIndex and persists the
// dense ordering of both groups.
func (s *Service) MoveCategory(ctx context.Context, categoryRef, groupRef string, toIndex int) (ordering.Batch, error) {
	var catID, groupID string
	b, err := s.reorder(ctx, func(snap *model.Snapshot) (ordering.Batch, error) {
		catID, groupID = categoryRef, groupRef
		if c, ok := snap.FindCategory(categoryRef); ok {
			catID = c.ID
		}
		if g, ok := snap.FindGroup(groupRef); ok {
			groupID = g.ID
		}
		return ordering.MoveCategory(snap.Groups, snap.Categories, catID, groupID, toIndex)
	})
	if err != nil {
		s.log.Warn("category move rejected", "category", categoryRef, "group", groupRef, "to", toIndex, "error", err)
		return ordering.Batch{}, err
	}
	s.record(ctx, ActionReorder, string(b.Scope), "moved category %s to %s at %d", catID, groupID, toIndex)
	return b, nil
}

// Reorder normalizes a full replacement ordering and persists it.
func (s *Service) Reorder(ctx context.Context, req ordering.Batch) (ordering.Batch, error) {
	b, err := s.reorder(ctx, func(snap *model.Snapshot) (ordering.Batch, error) {
		if req.Scope == ordering.ScopeGroup {
			return ordering.NormalizeGroups(snap.Groups, req)
		}
		return ordering.NormalizeCategories(snap.Groups, snap.Categories, req)
	})
	if err != nil {
		s.log.Warn("reorder rejected", "scope", req.Scope, "items", len(req.Items), "error", err)
		return ordering.Batch{}, err
	}
	s.record(ctx, ActionReorder, string(b.Scope), "reordered %d %s items", len(b.Items), b.Scope)
	return b, nil
}

// reorder plans a batch against a fresh snapshot and applies it. A batch the
// store refuses because the ordering moved underneath it is planned again.
func (s *Service) reorder(ctx context.Context, plan func(*model.Snapshot) (ordering.Batch, error)) (ordering.Batch, error) {
	for attempt := 1; ; attempt++ {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return ordering.Batch{}, err
		}
		b, err := plan(snap)
		if err != nil {
			return ordering.Batch{}, err
		}
		err = s.store.ApplySortOrder(ctx, b)
		if err == nil {
			s.log.Info("sort order applied", "scope", b.Scope, "items", len(b.Items), "attempt", attempt)
			return b, nil
		}
		if !errors.Is(err, model.ErrConcurrentChange) || attempt == maxReplans {
			return ordering.Batch{}, fmt.Errorf("applying sort order: %w", err)
		}
		s.log.Debug("sort order changed underneath, planning again", "scope", b.Scope, "attempt", attempt, "error", err)
	}
}
