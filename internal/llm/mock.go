package llm

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockDispatcher permite tests sin llamar a un endpoint real.
// Si Chunks no es nil responde en modo streaming con esos chunks, uno por Read.
type MockDispatcher struct {
	mu       sync.Mutex
	Content  string
	Chunks   []string
	Err      error
	Requests []Request
	// Block, si no es nil, se espera antes de responder.
	Block chan struct{}
}

func (m *MockDispatcher) Send(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Chunks != nil {
		return Streaming{Body: io.NopCloser(&ChunkReader{Chunks: m.Chunks})}, nil
	}
	return Complete{Content: m.Content}, nil
}

// Calls devuelve cuántas peticiones recibió el mock.
func (m *MockDispatcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// ChunkReader entrega cada chunk en una llamada a Read distinta, simulando la red.
// Err, si no es nil, se devuelve en lugar de io.EOF al agotar los chunks.
type ChunkReader struct {
	Chunks []string
	Err    error
	cur    *strings.Reader
	idx    int
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	for r.cur == nil || r.cur.Len() == 0 {
		if r.idx >= len(r.Chunks) {
			if r.Err != nil {
				return 0, r.Err
			}
			return 0, io.EOF
		}
		r.cur = strings.NewReader(r.Chunks[r.idx])
		r.idx++
		if r.cur.Len() > 0 {
			break
		}
	}
	return r.cur.Read(p)
}
