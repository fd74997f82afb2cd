package types

import "time"

// TimelineEntry is one append-only step in an order's history.
type TimelineEntry struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	By     string    `json:"by,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// OrderRating is a one-shot review left by one order party about the other.
type OrderRating struct {
	Stars int       `json:"stars"`
	Note  string    `json:"note,omitempty"`
	At    time.Time `json:"at"`
}
