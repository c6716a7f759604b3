package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/llm"
	"moogla-chat/internal/metrics"
)

// ErrSendInProgress se devuelve si llega un envío mientras otro sigue abierto.
var ErrSendInProgress = errors.New("send already in progress")

// ChatController orquesta entrada del usuario -> envío -> decodificación -> historial -> render.
type ChatController struct {
	store      *ConversationStore
	dispatcher llm.Dispatcher
	prefs      *PreferencesService
	logger     *zap.Logger
	metrics    *metrics.Recorder
	stream     bool

	// sending serializa envíos y Clear; el segundo no espera, se rechaza.
	sending atomic.Bool
}

func NewChatController(
	store *ConversationStore,
	dispatcher llm.Dispatcher,
	prefs *PreferencesService,
	logger *zap.Logger,
	stream bool,
) *ChatController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatController{
		store:      store,
		dispatcher: dispatcher,
		prefs:      prefs,
		logger:     logger,
		stream:     stream,
	}
}

// WithMetrics conecta el recorder de Prometheus.
func (c *ChatController) WithMetrics(m *metrics.Recorder) *ChatController {
	c.metrics = m
	return c
}

// SendUserMessage envía text al endpoint y deja la respuesta en el historial.
// Texto vacío o sólo espacios es un no-op. Los fallos del endpoint no se
// devuelven: se convierten en un mensaje de asistente "Error: ...".
func (c *ChatController) SendUserMessage(ctx context.Context, r Renderer, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !c.sending.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer c.sending.Store(false)

	if r == nil {
		r = NopRenderer{}
	}
	// El historial se escribe aunque el llamador cancele a mitad de stream.
	storeCtx := context.WithoutCancel(ctx)
	log := c.logger.With(zap.String("send_id", uuid.NewString()))

	userMsg := domain.UserMessage(text)
	c.store.Append(storeCtx, userMsg)
	r.AppendMessage(userMsg)

	r.SetLoading(true)
	defer r.SetLoading(false)

	start := time.Now()
	mode := metrics.ModeComplete
	if c.stream {
		mode = metrics.ModeStream
	}

	req := llm.Request{
		Model:    c.prefs.Model(ctx),
		Messages: c.store.All(),
		Stream:   c.stream,
		Plugins:  c.prefs.Plugins(ctx),
	}
	log.Debug("sending completion request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Bool("stream", req.Stream),
	)

	resp, err := c.dispatcher.Send(ctx, req)
	if err != nil {
		log.Warn("completion request failed", zap.Error(err))
		c.appendError(storeCtx, r, err)
		c.metrics.ObserveSend(mode, metrics.OutcomeError, time.Since(start))
		return nil
	}

	outcome := metrics.OutcomeOK
	switch v := resp.(type) {
	case llm.Complete:
		mode = metrics.ModeComplete
		reply := domain.AssistantMessage(v.Content)
		c.store.Append(storeCtx, reply)
		r.AppendMessage(reply)
	case llm.Streaming:
		mode = metrics.ModeStream
		if err := c.consumeStream(ctx, storeCtx, r, v, log); err != nil {
			outcome = metrics.OutcomeError
		}
	default:
		log.Error("unexpected response variant")
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveSend(mode, outcome, time.Since(start))
	return nil
}

// consumeStream muestra un placeholder vacío, lo actualiza con cada delta y
// lo guarda en el historial sólo al cerrarse el stream.
func (c *ChatController) consumeStream(ctx, storeCtx context.Context, r Renderer, s llm.Streaming, log *zap.Logger) error {
	defer s.Body.Close()

	idx := r.AppendMessage(domain.AssistantMessage(""))
	dec := llm.NewStreamDecoder()
	err := dec.Consume(ctx, s.Body, func(llm.Delta) {
		r.UpdateMessage(idx, dec.Text())
	})

	st := dec.Stats()
	c.metrics.AddStreamLines(llm.EventContent.String(), st.Content)
	c.metrics.AddStreamLines(llm.EventRaw.String(), st.Raw)
	c.metrics.AddStreamLines(llm.EventSkip.String(), st.Skipped)

	text := dec.Text()
	if err == nil {
		c.store.Append(storeCtx, domain.AssistantMessage(text))
		log.Debug("stream completed",
			zap.Int("chunks", st.Chunks),
			zap.Int("bytes", st.Bytes),
			zap.Int("raw_lines", st.Raw),
		)
		return nil
	}

	log.Warn("stream interrupted", zap.Error(err), zap.Int("partial_len", len(text)))
	errMsg := domain.ErrorMessage(err)
	if text == "" {
		// El placeholder vacío pasa a ser el mensaje de error.
		r.UpdateMessage(idx, errMsg.Content)
		c.store.Append(storeCtx, errMsg)
		return err
	}
	c.store.Append(storeCtx, domain.AssistantMessage(text))
	c.store.Append(storeCtx, errMsg)
	r.AppendMessage(errMsg)
	return err
}

func (c *ChatController) appendError(ctx context.Context, r Renderer, err error) {
	msg := domain.ErrorMessage(err)
	c.store.Append(ctx, msg)
	r.AppendMessage(msg)
}

// Clear vacía el historial y la superficie. Es idempotente, pero no corre
// durante un envío: devuelve ErrSendInProgress y no toca nada.
func (c *ChatController) Clear(ctx context.Context, r Renderer) error {
	if !c.sending.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer c.sending.Store(false)

	c.store.Clear(context.WithoutCancel(ctx))
	if r != nil {
		r.Reset()
	}
	c.logger.Info("conversation cleared")
	return nil
}

// Replay restaura el historial persistido y lo vuelve a mostrar en orden.
func (c *ChatController) Replay(ctx context.Context, r Renderer) []domain.Message {
	messages := c.store.Restore(ctx)
	if r != nil {
		for _, m := range messages {
			r.AppendMessage(m)
		}
	}
	return messages
}

// History devuelve una copia del historial actual.
func (c *ChatController) History() []domain.Message {
	return c.store.All()
}

// Busy indica si hay un envío en curso.
func (c *ChatController) Busy() bool {
	return c.sending.Load()
}
