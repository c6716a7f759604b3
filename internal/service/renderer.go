package service

import "moogla-chat/internal/domain"

// Renderer es la superficie donde se muestra la conversación (web vía SSE, terminal).
type Renderer interface {
	// SetLoading muestra u oculta el indicador de espera.
	SetLoading(on bool)
	// AppendMessage muestra un mensaje nuevo y devuelve su posición.
	AppendMessage(msg domain.Message) int
	// UpdateMessage reemplaza el contenido visible del mensaje en index.
	UpdateMessage(index int, content string)
	// Reset vacía la superficie.
	Reset()
}

// NopRenderer descarta todo; sirve cuando no hay superficie conectada.
type NopRenderer struct{}

func (NopRenderer) SetLoading(bool)                  {}
func (NopRenderer) AppendMessage(domain.Message) int { return -1 }
func (NopRenderer) UpdateMessage(int, string)        {}
func (NopRenderer) Reset()                           {}
