package signaling

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// Hub is a signaling relay. Clients register under an id and exchange
// offers, answers and ICE candidates addressed by target id.
type Hub struct {
	upgrader websocket.Upgrader
	log      logging.LeveledLogger

	mu      sync.Mutex
	clients map[string]*hubConn
}

type hubConn struct {
	id         string
	clientType string
	ws         *websocket.Conn
	wmu        sync.Mutex
}

func (c *hubConn) write(msg Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	return c.ws.WriteJSON(msg)
}

// NewHub returns an empty hub.
func NewHub(lf logging.LoggerFactory) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     lf.NewLogger("hub"),
		clients: make(map[string]*hubConn),
	}
}

// ServeHTTP upgrades the request and serves one client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade: %v", err)
		return
	}
	defer ws.Close()

	conn, err := h.register(ws)
	if err != nil {
		h.log.Infof("rejecting client: %v", err)
		_ = ws.WriteJSON(Message{Type: TypeError, Msg: err.Error()})
		return
	}
	defer h.unregister(conn)

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			h.log.Debugf("client %s left: %v", conn.id, err)
			return
		}
		h.route(conn, msg)
	}
}

// Hosts returns the registered capture hosts ordered by id.
func (h *Hub) Hosts() []HostInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hostsLocked()
}

func (h *Hub) hostsLocked() []HostInfo {
	var hosts []HostInfo
	for _, c := range h.clients {
		if c.clientType == ClientTypeHost {
			hosts = append(hosts, HostInfo{ID: c.id, Online: true})
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
	return hosts
}

func (h *Hub) register(ws *websocket.Conn) (*hubConn, error) {
	var msg Message
	if err := ws.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("read register: %w", err)
	}
	if msg.Type != TypeRegister || msg.ID == "" {
		return nil, fmt.Errorf("first message must be a register with an id")
	}
	if msg.ClientType != ClientTypeHost && msg.ClientType != ClientTypeViewer {
		return nil, fmt.Errorf("unknown client type %q", msg.ClientType)
	}

	conn := &hubConn{id: msg.ID, clientType: msg.ClientType, ws: ws}
	h.mu.Lock()
	if _, taken := h.clients[msg.ID]; taken {
		h.mu.Unlock()
		return nil, fmt.Errorf("id %q already registered", msg.ID)
	}
	h.clients[msg.ID] = conn
	h.mu.Unlock()

	h.log.Infof("%s %s registered", conn.clientType, conn.id)
	if err := conn.write(Message{Type: TypeRegistered, ID: conn.id}); err != nil {
		h.unregister(conn)
		return nil, err
	}
	if conn.clientType == ClientTypeHost {
		h.broadcastHosts()
	}
	return conn, nil
}

func (h *Hub) unregister(conn *hubConn) {
	h.mu.Lock()
	if h.clients[conn.id] == conn {
		delete(h.clients, conn.id)
	}
	h.mu.Unlock()

	if conn.clientType == ClientTypeHost {
		h.toViewers(Message{Type: TypeHostDisconnected, HostID: conn.id})
		h.broadcastHosts()
	}
}

func (h *Hub) route(from *hubConn, msg Message) {
	switch msg.Type {
	case TypeListHosts:
		_ = from.write(Message{Type: TypeHosts, List: h.Hosts()})
	case TypePing:
		_ = from.write(Message{Type: TypePong})
	case TypeOffer, TypeAnswer, TypeICECandidate:
		h.mu.Lock()
		target, ok := h.clients[msg.Target]
		h.mu.Unlock()
		if !ok {
			_ = from.write(Message{Type: TypeError, Msg: fmt.Sprintf("unknown target %q", msg.Target)})
			return
		}
		msg.From = from.id
		msg.Target = ""
		if err := target.write(msg); err != nil {
			h.log.Warnf("relay %s %s -> %s: %v", msg.Type, from.id, target.id, err)
		}
	default:
		_ = from.write(Message{Type: TypeError, Msg: fmt.Sprintf("unsupported message type %q", msg.Type)})
	}
}

func (h *Hub) broadcastHosts() {
	h.toViewers(Message{Type: TypeHostsUpdated, List: h.Hosts()})
}

func (h *Hub) toViewers(msg Message) {
	h.mu.Lock()
	var viewers []*hubConn
	for _, c := range h.clients {
		if c.clientType == ClientTypeViewer {
			viewers = append(viewers, c)
		}
	}
	h.mu.Unlock()

	for _, v := range viewers {
		if err := v.write(msg); err != nil {
			h.log.Debugf("notify %s: %v", v.id, err)
		}
	}
}
