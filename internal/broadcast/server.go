package broadcast

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	applog "auctionhouse/internal/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// watchers are read-only; the API enforces auth on writes
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler { return &Handler{hub: hub} }

// Routes: /ws/items/{id}, /health, /stats/items/{id}.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/items/{id}", h.watch)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/stats/items/{id}", h.stats).Methods(http.MethodGet)
	return r
}

func (h *Handler) watch(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "errorCode": "VALIDATION", "message": "item id is required"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Error(nil, "ws.upgrade", err, map[string]any{"item_id": itemID})
		return
	}

	c := &Client{ID: uuid.NewString(), ItemID: itemID, Conn: conn, Send: make(chan []byte, sendBuffer)}
	// queued before registering; the hub owns Send afterwards
	hello, _ := json.Marshal(map[string]string{"type": "connected", "itemId": itemID, "clientId": c.ID})
	c.Send <- hello
	if !h.hub.Register(c) {
		_ = conn.Close()
		return
	}
	go c.readPump(h.hub)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "broadcast"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]any{"itemId": itemID, "subscribers": h.hub.SubscriberCount(itemID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
