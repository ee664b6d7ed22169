package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"page_objects/domain/entities"
)

// flushEvery bounds how many actions are buffered before they hit the disk
const flushEvery = 64

// FileJournal keeps the driver interaction history as json lines
type FileJournal struct {
	mu      sync.Mutex
	path    string
	pending []entities.Action
}

// DefaultJournalPath - returns the journal location under the user's home
func DefaultJournalPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".page_objects", "journal.jsonl")
}

// NewFileJournal - creates a journal at path, creating its directory
func NewFileJournal(path string) (*FileJournal, error) {
	if path == "" {
		path = DefaultJournalPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &FileJournal{path: path}, nil
}

// Path returns the journal file location
func (j *FileJournal) Path() string {
	return j.path
}

// Append buffers an action, flushing once the buffer is full
func (j *FileJournal) Append(action entities.Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(j.pending, action)
	if len(j.pending) >= flushEvery {
		return j.flush()
	}
	return nil
}

// Load returns the stored history followed by buffered actions
func (j *FileJournal) Load() ([]entities.Action, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stored, err := j.read()
	if err != nil {
		return nil, err
	}
	return append(stored, j.pending...), nil
}

// Flush - writes buffered actions to the journal file
func (j *FileJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flush()
}

func (j *FileJournal) flush() error {
	if len(j.pending) == 0 {
		return nil
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, action := range j.pending {
		if err := enc.Encode(action); err != nil {
			f.Close()
			return fmt.Errorf("failed to write journal: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	j.pending = nil
	return nil
}

func (j *FileJournal) read() ([]entities.Action, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.Action{}, nil
		}
		return nil, err
	}
	defer f.Close()

	history := []entities.Action{}
	dec := json.NewDecoder(f)
	for {
		var action entities.Action
		err := dec.Decode(&action)
		if errors.Is(err, io.EOF) {
			return history, nil
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt journal %s: %w", j.path, err)
		}
		history = append(history, action)
	}
}
