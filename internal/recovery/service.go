package recovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"novac/kit/observability"
)

// Entry is a verified result that could not be applied. An operator can
// replay it with a reverify.
type Entry struct {
	Topic     string    `json:"topic"`
	Reference string    `json:"reference"`
	Reason    string    `json:"reason"`
	Payload   any       `json:"payload"`
	At        time.Time `json:"at"`
}

type Service struct {
	logger *observability.Logger

	mu      sync.Mutex
	entries []Entry
	f       *os.File
}

func NewService(logger *observability.Logger) *Service {
	return &Service{logger: logger}
}

func NewServiceWithFile(logger *observability.Logger, path string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("dlq error", "layer", "service", "component", "recovery", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("dlq error", "layer", "service", "component", "recovery", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		return nil, err
	}
	return &Service{logger: logger, f: f}, nil
}

func (s *Service) SendToDLQ(ctx context.Context, topic, reference, reason string, payload any) {
	e := Entry{Topic: topic, Reference: reference, Reason: reason, Payload: payload, At: time.Now().UTC()}
	s.logger.Error("dlq", "layer", "service", "component", "recovery", "topic", topic, "reference", reference, "reason", reason)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if s.f == nil {
		return
	}
	b, err := json.Marshal(e)
	if err == nil {
		_, err = s.f.Write(append(b, '\n'))
	}
	if err != nil {
		s.logger.Error("dlq error", "layer", "service", "component", "recovery", "method", "SendToDLQ", "reference", reference, "error", err.Error())
	}
}

func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
