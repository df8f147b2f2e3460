package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// fakeConn records every frame the relay pushes into it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	broken bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{}
}

func (f *fakeConn) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("broken pipe")
	}
	b := make([]byte, len(p))
	copy(b, p)
	f.frames = append(f.frames, b)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// messages decodes every recorded frame as a JSON object.
func (f *fakeConn) messages(t *testing.T) []map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]map[string]interface{}, 0, len(f.frames))
	for _, frame := range f.frames {
		var m map[string]interface{}
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("frame %q is not a JSON object: %v", frame, err)
		}
		result = append(result, m)
	}
	return result
}

func (f *fakeConn) last(t *testing.T) map[string]interface{} {
	t.Helper()
	msgs := f.messages(t)
	if len(msgs) == 0 {
		t.Fatal("no frames recorded")
	}
	return msgs[len(msgs)-1]
}
