package realtime

import (
	"io"
	"sync"
)

// wsFrame is one websocket frame crossing the fake connection, in either
// direction.
type wsFrame struct {
	messageType int
	payload     []byte
	err         error
}

// fakeConn records writes and replays scripted reads. Reading past the
// script yields io.EOF, which is how the read pump sees a closed peer.
type fakeConn struct {
	mu      sync.Mutex
	written []wsFrame
	scripts []wsFrame
	closed  int
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, wsFrame{
		messageType: messageType,
		payload:     append([]byte(nil), data...),
	})
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scripts) == 0 {
		return 0, nil, io.EOF
	}
	frame := c.scripts[0]
	c.scripts = c.scripts[1:]
	return frame.messageType, append([]byte(nil), frame.payload...), frame.err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) writtenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func (c *fakeConn) writtenFrame(i int) wsFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written[i]
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
