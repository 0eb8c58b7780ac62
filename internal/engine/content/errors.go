package content

import "errors"

// ErrAlgorithmInvariant reports that an insertion computed a position the
// schema rejects. It indicates a bug in the algorithm, not bad input.
var ErrAlgorithmInvariant = errors.New("content algorithm invariant violated")
