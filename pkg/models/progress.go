package models

import "math"

// UserProgress is the single progress record for a (user, signal) pair.
// LastReadAt is unix milliseconds.
type UserProgress struct {
	UserID      string  `json:"user_id"`
	SignalID    string  `json:"signal_id"`
	Progress    float64 `json:"progress"`
	IsCompleted bool    `json:"is_completed"`
	LastReadAt  int64   `json:"last_read_at"`
}

// ClampProgress bounds a percentage to [0, 100]. NaN is treated as 0.
func ClampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
