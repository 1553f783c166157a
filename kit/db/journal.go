package db

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"novac/kit/broker"
	"novac/kit/observability"
)

// Record is one journal entry: a domain event recorded against a transaction
// reference.
type Record struct {
	Reference  string          `json:"reference"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Journal is an append-only, reference-keyed event log. With a backing file
// every record is written as one JSON line and replayed on open.
type Journal struct {
	logger *observability.Logger

	mu      sync.RWMutex
	byRef   map[string][]Record
	ordered []Record

	fileMu sync.Mutex
	f      *os.File
}

func NewJournal(logger *observability.Logger) *Journal {
	return &Journal{logger: logger, byRef: make(map[string][]Record)}
}

func OpenJournal(path string, logger *observability.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("journal open failed", "layer", "kit", "component", "journal", "path", path, "error", err.Error())
		return nil, errors.Join(ErrInternal, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		logger.Error("journal open failed", "layer", "kit", "component", "journal", "path", path, "error", err.Error())
		return nil, errors.Join(ErrInternal, err)
	}

	j := NewJournal(logger)
	if err := j.replay(f); err != nil {
		_ = f.Close()
		logger.Error("journal replay failed", "layer", "kit", "component", "journal", "path", path, "error", err.Error())
		return nil, errors.Join(ErrInternal, err)
	}
	j.f = f
	return j, nil
}

func (j *Journal) replay(f *os.File) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		j.index(rec)
	}
	return sc.Err()
}

func (j *Journal) index(rec Record) {
	j.mu.Lock()
	j.byRef[rec.Reference] = append(j.byRef[rec.Reference], rec)
	j.ordered = append(j.ordered, rec)
	j.mu.Unlock()
}

func (j *Journal) Append(ctx context.Context, reference string, evt broker.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Join(ErrInvalid, err)
	}
	rec := Record{
		Reference:  reference,
		EventName:  evt.Name(),
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	j.fileMu.Lock()
	if j.f != nil {
		line, mErr := json.Marshal(rec)
		if mErr == nil {
			_, mErr = j.f.Write(append(line, '\n'))
		}
		if mErr != nil {
			j.fileMu.Unlock()
			j.logger.Error("journal append failed", "layer", "kit", "component", "journal", "reference", reference, "event", evt.Name(), "error", mErr.Error())
			return errors.Join(ErrInternal, mErr)
		}
	}
	j.fileMu.Unlock()

	j.index(rec)
	return nil
}

func (j *Journal) Load(ctx context.Context, reference string) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Record(nil), j.byRef[reference]...)
}

func (j *Journal) All(ctx context.Context) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Record(nil), j.ordered...)
}

func (j *Journal) Close() error {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}
