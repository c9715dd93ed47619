package health

import "errors"

// ErrNilSource indicates a nil jobrun.Source was passed to NewAggregator.
// The aggregator reports such a component as a failed lookup.
var ErrNilSource = errors.New("health: source is nil")
