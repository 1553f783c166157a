package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"novac/kit/observability"
)

type Entry struct {
	At        time.Time      `json:"at"`
	Event     string         `json:"event"`
	Reference string         `json:"reference,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Service writes the audit trail: one JSON line per domain event or
// privileged read.
type Service struct {
	logger *observability.Logger
	fileMu sync.Mutex
	f      *os.File
}

func NewService(logger *observability.Logger) *Service {
	return &Service{logger: logger}
}

func NewServiceWithFile(logger *observability.Logger, path string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("audit error", "layer", "service", "component", "audit", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("audit error", "layer", "service", "component", "audit", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		return nil, err
	}
	return &Service{logger: logger, f: f}, nil
}

func (s *Service) Close() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	if err != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Close", "error", err.Error())
	}
	s.f = nil
	return err
}

func (s *Service) Record(ctx context.Context, e Entry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	s.logger.Info("audit", "event", e.Event, "reference", e.Reference, "actor", e.Actor)

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Record", "event", e.Event, "error", err.Error())
		return
	}
	if _, err := s.f.Write(append(b, '\n')); err != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Record", "event", e.Event, "error", err.Error())
	}
}
