package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine.IO v4 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO v5 packet types, carried inside an engine message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketAck          = '3'
	socketConnectError = '4'
)

type frameKind int

const (
	frameOpen frameKind = iota + 1
	frameClose
	framePing
	framePong
	frameConnect
	frameDisconnect
	frameEvent
	frameAck
	frameConnectError
)

type frame struct {
	kind  frameKind
	open  openPayload
	event Event
	err   string
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

func (o openPayload) deadline() time.Duration {
	d := time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
	if d <= 0 {
		return 45 * time.Second
	}
	return d
}

var errMalformed = errors.New("malformed frame")

func decodeFrame(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, errMalformed
	}
	switch data[0] {
	case engineOpen:
		var f frame
		f.kind = frameOpen
		if err := json.Unmarshal(data[1:], &f.open); err != nil {
			return frame{}, fmt.Errorf("open payload: %w", err)
		}
		return f, nil
	case engineClose:
		return frame{kind: frameClose}, nil
	case enginePing:
		return frame{kind: framePing}, nil
	case enginePong:
		return frame{kind: framePong}, nil
	case engineMessage:
		return decodeSocketPacket(data[1:])
	default:
		return frame{}, fmt.Errorf("%w: engine type %q", errMalformed, data[0])
	}
}

func decodeSocketPacket(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, errMalformed
	}
	kind := data[0]
	body := data[1:]

	// Only the default namespace is used; ack ids are ignored.
	if len(body) > 0 && body[0] == '/' {
		if i := bytes.IndexByte(body, ','); i >= 0 {
			body = body[i+1:]
		} else {
			body = nil
		}
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}

	switch kind {
	case socketConnect:
		return frame{kind: frameConnect}, nil
	case socketDisconnect:
		return frame{kind: frameDisconnect}, nil
	case socketConnectError:
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Message == "" {
			e.Message = strings.TrimSpace(string(body))
		}
		return frame{kind: frameConnectError, err: e.Message}, nil
	case socketAck:
		return frame{kind: frameAck}, nil
	case socketEvent:
		var parts []json.RawMessage
		if err := json.Unmarshal(body, &parts); err != nil {
			return frame{}, fmt.Errorf("event body: %w", err)
		}
		if len(parts) == 0 {
			return frame{}, fmt.Errorf("%w: event without name", errMalformed)
		}
		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return frame{}, fmt.Errorf("event name: %w", err)
		}
		return frame{kind: frameEvent, event: Event{Name: Canonical(name), Args: parts[1:]}}, nil
	default:
		return frame{}, fmt.Errorf("%w: socket type %q", errMalformed, kind)
	}
}

func encodeEvent(name string, args ...interface{}) ([]byte, error) {
	parts := make([]interface{}, 0, len(args)+1)
	parts = append(parts, name)
	parts = append(parts, args...)
	body, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", name, err)
	}
	return append([]byte{engineMessage, socketEvent}, body...), nil
}

func encodeConnect(auth interface{}) ([]byte, error) {
	out := []byte{engineMessage, socketConnect}
	if auth == nil {
		return out, nil
	}
	body, err := json.Marshal(auth)
	if err != nil {
		return nil, fmt.Errorf("encode connect: %w", err)
	}
	return append(out, body...), nil
}

var (
	pongFrame       = []byte{enginePong}
	disconnectFrame = []byte{engineMessage, socketDisconnect}
)

// SocketURL turns the configured socket base (http, https, ws or wss) into the
// Engine.IO websocket endpoint.
func SocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("socket url %q: unsupported scheme", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socket url %q: missing host", base)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
