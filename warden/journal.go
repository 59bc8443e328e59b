// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

package warden

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/roomwarden/roomwarden/lib/codec"
)

// Record is one journaled admission decision. Plain allows are not
// journaled; the journal holds denials and compensated allows only.
type Record struct {
	// Timestamp is when the decision was journaled, in Unix
	// milliseconds. Filled in by Append when zero.
	Timestamp int64 `cbor:"ts" json:"ts"`

	// Decision is "allow" or "deny".
	Decision string `cbor:"decision" json:"decision"`

	RoomID    string `cbor:"room_id" json:"room_id"`
	Sender    string `cbor:"sender" json:"sender"`
	EventType string `cbor:"event_type" json:"event_type"`

	// Reason is the denial reason. Empty for allows.
	Reason string `cbor:"reason,omitempty" json:"reason,omitempty"`

	// Emitted lists the compensating state event types, in emission
	// order.
	Emitted []string `cbor:"emitted,omitempty" json:"emitted,omitempty"`
}

// Journal is an append-only on-disk decision log: a stream of
// CBOR-encoded Records. Deterministic encoding keeps the stream
// byte-reproducible for a given sequence of decisions.
type Journal struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *codec.Encoder
}

// OpenJournal opens (creating if necessary) the journal at path for
// appending.
func OpenJournal(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("warden: opening journal: %w", err)
	}
	return &Journal{path: path, file: file, encoder: codec.NewEncoder(file)}, nil
}

// Path returns the journal's file path.
func (j *Journal) Path() string { return j.path }

// Append writes one record to the journal.
func (j *Journal) Append(record Record) error {
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New("warden: journal is closed")
	}
	if err := j.encoder.Encode(record); err != nil {
		return fmt.Errorf("warden: journal append: %w", err)
	}
	return nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal decodes every record in the journal at path. Intended
// for the offline inspection command and for tests.
func ReadJournal(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("warden: opening journal: %w", err)
	}
	defer file.Close()

	var records []Record
	decoder := codec.NewDecoder(file)
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("warden: journal record %d: %w", len(records), err)
		}
		records = append(records, record)
	}
}
