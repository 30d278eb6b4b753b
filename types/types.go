// Package types contains shared types used across the listing render backend
package types

import (
	"time"
)

// Listing is one trade listing published by the upstream feed. The feed
// assigns the identifier; the remaining fields are the render payload and are
// passed through to workers untouched.
type Listing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Published   string `json:"published"`
}

// WorkerStatus is the probe result for a single rendering worker.
type WorkerStatus struct {
	Endpoint    string `json:"endpoint"`
	Healthy     bool   `json:"healthy"`
	MemoryBytes uint64 `json:"memory_bytes"`
	Error       string `json:"error,omitempty"`
}

// HealthReport aggregates the health of every registered worker.
type HealthReport struct {
	Total       int            `json:"total"`
	Healthy     int            `json:"healthy"`
	MemoryBytes uint64         `json:"memory_bytes"`
	Workers     []WorkerStatus `json:"workers"`
	CheckedAt   time.Time      `json:"checked_at"`
}
