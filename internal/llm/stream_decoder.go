package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readChunkSize = 4096

// EventKind clasifica una línea completa del flujo.
type EventKind int

const (
	// EventSkip: línea en blanco (keep-alive o separador).
	EventSkip EventKind = iota
	// EventContent: JSON válido; Text es choices[0].delta.content o "".
	EventContent
	// EventRaw: no es JSON; Text es la línea literal.
	EventRaw
)

func (k EventKind) String() string {
	switch k {
	case EventSkip:
		return "skip"
	case EventContent:
		return "content"
	case EventRaw:
		return "raw"
	}
	return "unknown"
}

// LineEvent es el resultado de interpretar una línea del flujo.
type LineEvent struct {
	Kind EventKind
	Text string
}

// ParseLineAsEvent interpreta una línea completa (sin el '\n').
// Nunca descarta una línea no vacía: si no es JSON, vuelve como EventRaw.
func ParseLineAsEvent(line string) LineEvent {
	line = strings.TrimSuffix(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineEvent{Kind: EventSkip}
	}

	if gjson.Valid(trimmed) {
		content := gjson.Get(trimmed, "choices.0.delta.content")
		return LineEvent{Kind: EventContent, Text: content.String()}
	}
	return LineEvent{Kind: EventRaw, Text: line}
}

// Delta es un incremento de texto del asistente.
type Delta struct {
	Text string
	// Raw indica que el texto vino del fallback literal y no de un evento JSON.
	Raw bool
}

// DecodeStats cuenta lo procesado por un decoder.
type DecodeStats struct {
	Chunks  int
	Bytes   int
	Content int
	Raw     int
	Skipped int
	Flushed bool
}

// StreamDecoder convierte chunks de bytes en deltas de texto, en orden de llegada.
// Cada envío usa su propia instancia; no es seguro para uso concurrente.
type StreamDecoder struct {
	utf8    transform.Transformer
	carry   []byte
	pending string
	text    strings.Builder
	stats   DecodeStats
	closed  bool
}

func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{utf8: unicode.UTF8.NewDecoder()}
}

// Write procesa un chunk y devuelve los deltas de las líneas que quedaron completas.
// El fragmento final sin '\n' queda en buffer hasta el próximo chunk o Close.
func (d *StreamDecoder) Write(chunk []byte) []Delta {
	if d.closed {
		return nil
	}
	d.stats.Chunks++
	d.stats.Bytes += len(chunk)
	d.pending += d.decodeText(chunk, false)

	lines := strings.Split(d.pending, "\n")
	d.pending = lines[len(lines)-1]

	var deltas []Delta
	for _, line := range lines[:len(lines)-1] {
		if delta, ok := d.processLine(line); ok {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Close vacía el estado pendiente. El fragmento final no se parsea como JSON:
// si no está vacío se agrega recortado como texto literal.
func (d *StreamDecoder) Close() []Delta {
	if d.closed {
		return nil
	}
	d.closed = true

	tail := d.pending + d.decodeText(nil, true)
	d.pending = ""
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return nil
	}
	d.stats.Flushed = true
	d.stats.Raw++
	d.text.WriteString(tail)
	return []Delta{{Text: tail, Raw: true}}
}

// Text devuelve el texto acumulado hasta ahora.
func (d *StreamDecoder) Text() string {
	return d.text.String()
}

func (d *StreamDecoder) Stats() DecodeStats {
	return d.stats
}

// Consume lee r chunk a chunk hasta EOF, llamando fn por cada delta.
// Ante un error de lectura devuelve el error sin vaciar el fragmento pendiente.
func (d *StreamDecoder) Consume(ctx context.Context, r io.Reader, fn func(Delta)) error {
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			for _, delta := range d.Write(buf[:n]) {
				if fn != nil {
					fn(delta)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			for _, delta := range d.Close() {
				if fn != nil {
					fn(delta)
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Decode consume r completo y devuelve el texto acumulado.
func Decode(ctx context.Context, r io.Reader, fn func(Delta)) (string, error) {
	d := NewStreamDecoder()
	err := d.Consume(ctx, r, fn)
	return d.Text(), err
}

// Deltas expone el flujo como secuencia perezosa. No es reiniciable:
// una segunda iteración lee desde donde quedó r.
func Deltas(r io.Reader) iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		d := NewStreamDecoder()
		buf := make([]byte, readChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, delta := range d.Write(buf[:n]) {
					if !yield(delta, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				for _, delta := range d.Close() {
					if !yield(delta, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(Delta{}, err)
				return
			}
		}
	}
}

func (d *StreamDecoder) processLine(line string) (Delta, bool) {
	ev := ParseLineAsEvent(line)
	switch ev.Kind {
	case EventSkip:
		d.stats.Skipped++
		return Delta{}, false
	case EventRaw:
		d.stats.Raw++
		d.text.WriteString(ev.Text)
		return Delta{Text: ev.Text, Raw: true}, true
	}
	d.stats.Content++
	if ev.Text == "" {
		return Delta{}, false
	}
	d.text.WriteString(ev.Text)
	return Delta{Text: ev.Text}, true
}

// decodeText decodifica UTF-8 en modo streaming: una secuencia multibyte
// cortada al final del chunk queda en carry hasta el siguiente.
func (d *StreamDecoder) decodeText(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.carry)+len(chunk))
	src = append(src, d.carry...)
	src = append(src, chunk...)
	d.carry = nil
	if len(src) == 0 {
		return ""
	}

	var out []byte
	for {
		dst := make([]byte, len(src)*3+utf8.UTFMax)
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		if errors.Is(err, transform.ErrShortDst) && nSrc > 0 {
			continue
		}
		if errors.Is(err, transform.ErrShortSrc) {
			d.carry = append([]byte(nil), src...)
		}
		break
	}
	return string(out)
}
