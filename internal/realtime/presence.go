package realtime

import (
	"encoding/json"
	"io"
	"sync"
)

// Роли подключений.
const (
	RoleGuest    = "guest"
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
)

// Identity — принципал одного live-соединения. Не персистится.
type Identity struct {
	UserID string
	Role   string
}

func GuestIdentity() Identity {
	return Identity{Role: RoleGuest}
}

// Conn — одно живое соединение: id, identity и writer исходящих фреймов.
type Conn struct {
	ID       string
	Identity Identity

	mu  sync.Mutex
	enc *json.Encoder
}

func NewConn(id string, identity Identity, w io.Writer) *Conn {
	return &Conn{ID: id, Identity: identity, enc: json.NewEncoder(w)}
}

func (c *Conn) writeFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(f)
}

// Departure описывает одну комнату, затронутую disconnect-свипом.
type Departure struct {
	ShipmentID  uint64
	ViewerCount int
	Remaining   []*Conn
}

// Registry держит присутствие как пару обратных индексов:
// shipment -> connections и connection -> shipments. Обе стороны меняются
// только парными хелперами addPair/removePair, чтобы индексы не разъезжались.
// Пустые множества удаляются, а не хранятся как плейсхолдеры.
type Registry struct {
	mu         sync.Mutex
	byShipment map[uint64]map[string]*Conn
	byConn     map[string]map[uint64]struct{}

	// Реестр живых соединений — отдельно от индексов присутствия:
	// глобальные события уходят и тем, кто не смотрит ни одну поставку.
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byShipment: make(map[uint64]map[string]*Conn),
		byConn:     make(map[string]map[uint64]struct{}),
		conns:      make(map[string]*Conn),
	}
}

func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.ID)
	r.mu.Unlock()
}

// Join идемпотентен: повторный join того же соединения данные не меняет.
// Возвращает (впервые ли добавлен, текущее число зрителей).
func (r *Registry) Join(c *Conn, shipmentID uint64) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := r.addPair(c, shipmentID)
	return added, len(r.byShipment[shipmentID])
}

// Leave идемпотентен: удаление не-участника — тихий no-op.
func (r *Registry) Leave(c *Conn, shipmentID uint64) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.removePair(c.ID, shipmentID)
	return removed, len(r.byShipment[shipmentID])
}

// Disconnect убирает соединение из всех комнат одним атомарным проходом и
// возвращает затронутые комнаты с оставшимися зрителями. Работает и когда
// соединение ни разу явно не вышло из комнат (обрыв сети).
func (r *Registry) Disconnect(c *Conn) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, c.ID)

	shipments := r.byConn[c.ID]
	out := make([]Departure, 0, len(shipments))
	for shipmentID := range shipments {
		r.removePair(c.ID, shipmentID)
		out = append(out, Departure{
			ShipmentID:  shipmentID,
			ViewerCount: len(r.byShipment[shipmentID]),
			Remaining:   r.watchersLocked(shipmentID),
		})
	}
	return out
}

func (r *Registry) ViewerCount(shipmentID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byShipment[shipmentID])
}

func (r *Registry) WatchedShipments(connID string) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.byConn[connID]))
	for id := range r.byConn[connID] {
		out = append(out, id)
	}
	return out
}

// Watchers — снимок зрителей комнаты на момент вызова.
func (r *Registry) Watchers(shipmentID uint64) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watchersLocked(shipmentID)
}

// Conns — снимок всех живых соединений.
func (r *Registry) Conns() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) watchersLocked(shipmentID uint64) []*Conn {
	room := r.byShipment[shipmentID]
	out := make([]*Conn, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

func (r *Registry) addPair(c *Conn, shipmentID uint64) bool {
	room, ok := r.byShipment[shipmentID]
	if !ok {
		room = make(map[string]*Conn)
		r.byShipment[shipmentID] = room
	}
	if _, exists := room[c.ID]; exists {
		return false
	}
	room[c.ID] = c

	watched, ok := r.byConn[c.ID]
	if !ok {
		watched = make(map[uint64]struct{})
		r.byConn[c.ID] = watched
	}
	watched[shipmentID] = struct{}{}
	return true
}

func (r *Registry) removePair(connID string, shipmentID uint64) bool {
	room, ok := r.byShipment[shipmentID]
	if !ok {
		return false
	}
	if _, exists := room[connID]; !exists {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.byShipment, shipmentID)
	}

	if watched, ok := r.byConn[connID]; ok {
		delete(watched, shipmentID)
		if len(watched) == 0 {
			delete(r.byConn, connID)
		}
	}
	return true
}
