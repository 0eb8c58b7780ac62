package model

// LiveScope owns live positions and ranges created through it and detaches
// all of them on Close:
//
//	scope := model.NewLiveScope()
//	defer scope.Close()
//	start, err := scope.Position(p, model.StickToPrevious)
type LiveScope struct {
	positions []*LivePosition
	ranges    []*LiveRange
}

// NewLiveScope creates an empty scope.
func NewLiveScope() *LiveScope {
	return &LiveScope{}
}

// Position creates a live position owned by the scope.
func (s *LiveScope) Position(p Position, stickiness Stickiness) (*LivePosition, error) {
	lp, err := NewLivePosition(p, stickiness)
	if err != nil {
		return nil, err
	}
	s.positions = append(s.positions, lp)
	return lp, nil
}

// Range creates a live range owned by the scope.
func (s *LiveScope) Range(r Range) (*LiveRange, error) {
	lr, err := NewLiveRange(r)
	if err != nil {
		return nil, err
	}
	s.ranges = append(s.ranges, lr)
	return lr, nil
}

// Close detaches everything the scope created.
func (s *LiveScope) Close() {
	for _, lp := range s.positions {
		lp.Detach()
	}
	for _, lr := range s.ranges {
		lr.Detach()
	}
	s.positions = nil
	s.ranges = nil
}
