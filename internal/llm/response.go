package llm

import "io"

// Response es la variante etiquetada que devuelve el Dispatcher:
// Streaming o Complete, decidida una sola vez a partir del Content-Type.
type Response interface {
	isResponse()
}

// Streaming lleva el cuerpo del flujo de eventos. Quien lo recibe debe cerrarlo.
type Streaming struct {
	Body io.ReadCloser
}

// Complete lleva la respuesta completa ya extraída de choices[0].message.content.
type Complete struct {
	Content string
}

func (Streaming) isResponse() {}
func (Complete) isResponse()  {}
