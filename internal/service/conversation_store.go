package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/repository"
)

// HistoryKey es la clave durable que guarda el historial serializado.
const HistoryKey = "chatHistory"

// persistFailureReporter recibe avisos de escrituras fallidas (métricas).
type persistFailureReporter interface {
	PersistFailed()
}

// ConversationStore es el único dueño del historial ordenado del chat.
// Cada Append y Clear persiste de forma síncrona; los errores de persistencia
// se registran y se ignoran, y la copia en memoria sigue siendo la autoritativa.
type ConversationStore struct {
	mu       sync.RWMutex
	repo     repository.KVRepository
	logger   *zap.Logger
	failures persistFailureReporter
	messages []domain.Message
}

func NewConversationStore(repo repository.KVRepository, logger *zap.Logger) *ConversationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		repo:     repo,
		logger:   logger,
		messages: []domain.Message{},
	}
}

// WithFailureReporter registra un destino para contar fallos de persistencia.
func (s *ConversationStore) WithFailureReporter(r persistFailureReporter) *ConversationStore {
	s.failures = r
	return s
}

func (s *ConversationStore) Append(ctx context.Context, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.persistLocked(ctx)
}

// All devuelve una copia del historial en orden cronológico.
func (s *ConversationStore) All() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *ConversationStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []domain.Message{}
	if s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx, HistoryKey); err != nil {
		s.logger.Warn("clear history failed", zap.Error(err))
		s.reportFailure()
	}
}

// Restore reemplaza el historial en memoria con el persistido y lo devuelve.
// Un valor ilegible se trata como historial vacío.
func (s *ConversationStore) Restore(ctx context.Context) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.loadLocked(ctx)
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) loadLocked(ctx context.Context) []domain.Message {
	if s.repo == nil {
		return []domain.Message{}
	}
	raw, err := s.repo.Get(ctx, HistoryKey)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return []domain.Message{}
	}
	if err != nil {
		s.logger.Warn("load history failed", zap.Error(err))
		return []domain.Message{}
	}

	var messages []domain.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		s.logger.Warn("decode history failed", zap.Error(err))
		return []domain.Message{}
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages
}

func (s *ConversationStore) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	data, err := json.Marshal(s.messages)
	if err != nil {
		s.logger.Warn("encode history failed", zap.Error(err))
		s.reportFailure()
		return
	}
	if err := s.repo.Set(ctx, HistoryKey, string(data)); err != nil {
		s.logger.Warn("persist history failed", zap.Error(err), zap.Int("messages", len(s.messages)))
		s.reportFailure()
	}
}

func (s *ConversationStore) reportFailure() {
	if s.failures != nil {
		s.failures.PersistFailed()
	}
}
