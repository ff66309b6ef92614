// Package rate implements the sliding-window request counter. One sorted set
// per (identity, action) pair; members outside the trailing window are pruned
// before every evaluation and a denied request is never recorded.
package rate
