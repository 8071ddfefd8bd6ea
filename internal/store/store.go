// Package store persists one artifact per (symbol, contract) as a
// key-addressed JSON blob, optionally zstd-compressed at rest.
package store

import "errors"

var ErrNotFound = errors.New("artifact not found")

// Record is one trading day of a contract's history. The vendor schema is
// wide, so records keep their map form; derived fields are added as keys.
type Record = map[string]any

// Artifact is the persisted unit for one contract. Expiration, strike and
// option type are passed through from the vendor metadata verbatim.
type Artifact struct {
	Expiration any      `json:"expiration"`
	Strike     any      `json:"strike"`
	OptionType any      `json:"optionType"`
	History    []Record `json:"history"`
}

// Store is the artifact persistence surface used by the pipeline.
type Store interface {
	Put(symbol, contractID string, artifact *Artifact) error
	Get(symbol, contractID string) (*Artifact, error)
	Delete(symbol, contractID string) error

	// List returns the contract IDs with a persisted artifact for the symbol.
	List(symbol string) ([]string, error)
}
