package storage

import "x-scraper/models"

// SignalWriter is the interface any signal storage backend must satisfy.
type SignalWriter interface {
	Write(signals []models.SignalRecord) error
	Close() error
}

// RawPostWriter is the interface for persisting canonical post records
// before signal computation.
type RawPostWriter interface {
	WriteRaw(records []*models.PostRecord) error
	Close() error
}
