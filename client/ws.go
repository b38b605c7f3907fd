package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/docline/docline/chat"
)

// WSConn is the production Emitter: a live websocket connection to the
// chat endpoint that feeds hub-pushed events back into a Session.
type WSConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Dial opens the chat websocket, passing the bearer token as a query
// parameter the way browser clients must.
func Dial(baseURL, token string) (*WSConn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chat url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &WSConn{conn: conn}, nil
}

// Emit sends one client event to the hub.
func (w *WSConn) Emit(event chat.ClientEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

// Pump reads hub events into the session until the connection dies. It
// drives the session's connection state and blocks; run it in a goroutine.
func (w *WSConn) Pump(session *Session) error {
	session.SetState(StateConnected)
	defer session.SetState(StateDisconnected)

	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			return err
		}
		session.HandleRaw(raw)
	}
}

func (w *WSConn) Close() error {
	return w.conn.Close()
}
