// Package streaming implements the proportional continuous-rate reward
// allocator: per-topic pool rates translated into per-recipient flow rates
// proportional to cached voting power, with monotonic accrual across rate
// transitions.
package streaming

import "math/big"

// SecondsPerMonth is the fixed divisor used by EstimateMonthly to convert
// a per-second flow rate into a monthly estimate.
const SecondsPerMonth = 30 * 24 * 60 * 60

// Stream is a per-(topic, recipient) continuous reward flow.
type Stream struct {
	Rate             *big.Int
	AccruedTotal     *big.Int
	LastRateChangeAt int64
	Active           bool
}

// Pool is a topic's configured distribution budget.
type Pool struct {
	Rate *big.Int
}
