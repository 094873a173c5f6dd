package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// ErrServerDisconnect is returned by ReadEvent when the server ends the session.
var ErrServerDisconnect = errors.New("server closed the socket")

// Conn is one Socket.IO session over a websocket.
type Conn struct {
	ws       *websocket.Conn
	open     openPayload
	writeMu  sync.Mutex
	closeMu  sync.Mutex
	isClosed bool
}

// Dial opens the websocket, completes the Engine.IO open and Socket.IO connect
// handshakes and returns a ready connection. The token is sent both as a
// bearer header and in the connect auth payload.
func Dial(ctx context.Context, dialer *websocket.Dialer, rawURL, token string) (*Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial socket: status=%d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial socket: %w", err)
	}

	c := &Conn{ws: ws}
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = ws.SetReadDeadline(deadline)

	// Reads ignore ctx, so cancellation closes the socket under them.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	err = c.handshake(token)
	if !stop() {
		ws.Close()
		return nil, fmt.Errorf("socket handshake: %w", context.Cause(ctx))
	}
	if err != nil {
		ws.Close()
		return nil, err
	}
	_ = ws.SetReadDeadline(time.Now().Add(c.open.deadline()))
	return c, nil
}

func (c *Conn) handshake(token string) error {
	f, err := c.readFrame()
	if err != nil {
		return fmt.Errorf("read open: %w", err)
	}
	if f.kind != frameOpen {
		return fmt.Errorf("expected open frame, got kind %d", f.kind)
	}
	c.open = f.open

	var auth interface{}
	if token != "" {
		auth = map[string]string{"token": token}
	}
	connect, err := encodeConnect(auth)
	if err != nil {
		return err
	}
	if err := c.write(connect); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	for {
		f, err := c.readFrame()
		if err != nil {
			return fmt.Errorf("read connect ack: %w", err)
		}
		switch f.kind {
		case frameConnect:
			return nil
		case frameConnectError:
			return fmt.Errorf("connect rejected: %s", f.err)
		case framePing:
			if err := c.write(pongFrame); err != nil {
				return err
			}
		}
	}
}

func (c *Conn) readFrame() (frame, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return frame{}, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		f, err := decodeFrame(data)
		if err != nil && !errors.Is(err, errMalformed) {
			err = fmt.Errorf("%w: %v", errMalformed, err)
		}
		return f, err
	}
}

func (c *Conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// ReadEvent blocks until the next event. Pings are answered here, so some
// goroutine must keep calling ReadEvent for the connection to stay alive.
func (c *Conn) ReadEvent() (Event, error) {
	for {
		f, err := c.readFrame()
		if err != nil {
			if errors.Is(err, errMalformed) {
				continue
			}
			return Event{}, err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.open.deadline()))

		switch f.kind {
		case framePing:
			if err := c.write(pongFrame); err != nil {
				return Event{}, fmt.Errorf("send pong: %w", err)
			}
		case frameEvent:
			return f.event, nil
		case frameDisconnect, frameClose:
			return Event{}, ErrServerDisconnect
		}
	}
}

// Emit sends one event with the given arguments.
func (c *Conn) Emit(name string, args ...interface{}) error {
	data, err := encodeEvent(name, args...)
	if err != nil {
		return err
	}
	return c.write(data)
}

// SID is the Engine.IO session id.
func (c *Conn) SID() string {
	return c.open.SID
}

// Close says goodbye to the server and closes the websocket. Safe to call twice.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	if c.isClosed {
		c.closeMu.Unlock()
		return nil
	}
	c.isClosed = true
	c.closeMu.Unlock()

	_ = c.write(disconnectFrame)
	return c.ws.Close()
}
