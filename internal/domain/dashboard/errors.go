package dashboard

import "errors"

// ErrAggregationFailed wraps store failures while computing a dashboard view.
var ErrAggregationFailed = errors.New("dashboard aggregation failed")
