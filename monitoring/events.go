package monitoring

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const clientBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventMsg struct {
	Type      string  `json:"type"`
	Actor     string  `json:"actor,omitempty"`
	Time      float64 `json:"time"`
	Microstep uint64  `json:"microstep"`
	State     string  `json:"state,omitempty"`
}

type commandMsg struct {
	Type string `json:"type"`
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent
// writes.
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v any) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	return sc.Conn.WriteJSON(v)
}

// A client receives the events through a buffered channel. Events are dropped
// when the client cannot keep up so the director never blocks.
type client struct {
	conn *safeConn
	send chan eventMsg
}

func (m *Monitor) addClient(c *client) {
	m.clientsLock.Lock()
	m.clients[c] = true
	m.clientsLock.Unlock()
}

func (m *Monitor) removeClient(c *client) {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()

	if m.clients[c] {
		delete(m.clients, c)
		close(c.send)
	}
}

func (m *Monitor) numClients() int {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()

	return len(m.clients)
}

func (m *Monitor) broadcast(msg eventMsg) {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()

	for c := range m.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// streamEvents pushes director events to a WebSocket client and accepts
// pause, resume and stop commands from it.
func (m *Monitor) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		conn: &safeConn{Conn: conn},
		send: make(chan eventMsg, clientBufferSize),
	}

	if err := c.conn.WriteJSON(m.statusMsg()); err != nil {
		log.Printf("Error sending status: %v", err)
		return
	}

	m.addClient(c)
	defer m.removeClient(c)

	go c.writeLoop()

	for {
		var cmd commandMsg
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Error reading message: %v", err)
			}

			return
		}

		m.handleCommand(c, cmd)
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (m *Monitor) handleCommand(c *client, cmd commandMsg) {
	if m.execution == nil {
		return
	}

	switch cmd.Type {
	case "pause":
		m.execution.Pause()
	case "resume":
		m.execution.Resume()
	case "stop":
		m.execution.Stop()
	default:
		log.Printf("Unknown command: %s", cmd.Type)
		return
	}

	if err := c.conn.WriteJSON(m.statusMsg()); err != nil {
		log.Printf("Error sending status: %v", err)
	}
}

func (m *Monitor) statusMsg() eventMsg {
	msg := eventMsg{Type: "status"}

	if m.director != nil {
		now := m.director.Now()
		msg.Time = now.Time.InSec()
		msg.Microstep = now.Microstep
	}

	if m.execution != nil {
		msg.State = m.execution.State().String()
	}

	return msg
}
