package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/service"
)

// ChatHandler expone el historial y el envío de mensajes.
type ChatHandler struct {
	logger *zap.Logger
	ctrl   *service.ChatController
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, ctrl *service.ChatController) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		ctrl:   ctrl,
	}
}

// GetHistory maneja GET /api/history.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.ctrl.History()})
}

// ClearHistory maneja DELETE /api/history.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	if err := h.ctrl.Clear(c.Request.Context(), nil); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// PostMessage maneja POST /api/messages. La respuesta es un stream SSE con
// los eventos de render del envío, terminado por "done".
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	r := newSSERenderer(c, len(h.ctrl.History()))
	err := h.ctrl.SendUserMessage(c.Request.Context(), r, req.Text)
	if errors.Is(err, service.ErrSendInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("send message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}
	r.emit("done", donePayload{Count: len(h.ctrl.History())})
}

type loadingPayload struct {
	On bool `json:"on"`
}

type appendPayload struct {
	Index   int            `json:"index"`
	Message domain.Message `json:"message"`
}

type updatePayload struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

type donePayload struct {
	Count int `json:"count"`
}

// sseRenderer traduce las llamadas del controller a eventos SSE. Los índices
// continúan la lista que el navegador obtuvo de GET /api/history.
type sseRenderer struct {
	mu   sync.Mutex
	c    *gin.Context
	next int
}

func newSSERenderer(c *gin.Context, base int) *sseRenderer {
	return &sseRenderer{c: c, next: base}
}

func (s *sseRenderer) SetLoading(on bool) {
	s.emit("loading", loadingPayload{On: on})
}

func (s *sseRenderer) AppendMessage(msg domain.Message) int {
	s.mu.Lock()
	idx := s.next
	s.next++
	s.mu.Unlock()
	s.emit("append", appendPayload{Index: idx, Message: msg})
	return idx
}

func (s *sseRenderer) UpdateMessage(index int, content string) {
	s.emit("update", updatePayload{Index: index, Content: content})
}

func (s *sseRenderer) Reset() {
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	s.emit("reset", struct{}{})
}

func (s *sseRenderer) emit(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}
