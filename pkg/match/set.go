package match

import "github.com/oisee/bindiffcore/internal/differr"

// Set is the ordered, duplicate-commit-detecting container of committed
// fixed points for one diff.
type Set struct {
	items       []*FixedPoint
	byPrimary   map[uint32]*FixedPoint
	bySecondary map[uint32]*FixedPoint
}

// NewSet returns an empty fixed-point set.
func NewSet() *Set {
	return &Set{
		byPrimary:   make(map[uint32]*FixedPoint),
		bySecondary: make(map[uint32]*FixedPoint),
	}
}

// Commit adds fp to the set. It returns a FailedPrecondition-kind error
// if either vertex is already part of a committed fixed point.
func (s *Set) Commit(fp *FixedPoint) error {
	if _, ok := s.byPrimary[fp.PrimaryVertex]; ok {
		return differr.New(differr.FailedPrecondition, "match: primary vertex already committed")
	}
	if _, ok := s.bySecondary[fp.SecondaryVertex]; ok {
		return differr.New(differr.FailedPrecondition, "match: secondary vertex already committed")
	}
	s.items = append(s.items, fp)
	s.byPrimary[fp.PrimaryVertex] = fp
	s.bySecondary[fp.SecondaryVertex] = fp
	return nil
}

// FixedPoints returns every committed fixed point, in commit order.
func (s *Set) FixedPoints() []*FixedPoint { return s.items }

// PrimaryMatched reports whether primary vertex v is already committed.
func (s *Set) PrimaryMatched(v uint32) (*FixedPoint, bool) {
	fp, ok := s.byPrimary[v]
	return fp, ok
}

// SecondaryMatched reports whether secondary vertex v is already
// committed.
func (s *Set) SecondaryMatched(v uint32) (*FixedPoint, bool) {
	fp, ok := s.bySecondary[v]
	return fp, ok
}

// Len returns the number of committed fixed points.
func (s *Set) Len() int { return len(s.items) }
