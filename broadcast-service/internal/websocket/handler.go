package websocket

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/shared/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development (use proper CORS in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	manager *Manager
	log     zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *Manager, log zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		log:     log,
	}
}

// SetupRoutes configures WebSocket routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// WebSocket endpoints, one topic per auction or listing
	router.HandleFunc("/ws/auctions/{id}", h.topicHandler(models.ItemKindAuction))
	router.HandleFunc("/ws/market-items/{id}", h.topicHandler(models.ItemKindMarket))

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Stats endpoints
	router.HandleFunc("/stats/auctions/{id}", h.statsHandler(models.ItemKindAuction)).Methods("GET")
	router.HandleFunc("/stats/market-items/{id}", h.statsHandler(models.ItemKindMarket)).Methods("GET")

	return router
}

// topicHandler upgrades the HTTP connection to a WebSocket watching one item
func (h *Handler) topicHandler(itemKind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		itemID := vars["id"]

		if itemID == "" {
			http.Error(w, "Item ID is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := &Client{
			ID:    uuid.New().String(),
			Topic: fmt.Sprintf("%s:%s", itemKind, itemID),
			Conn:  conn,
			Send:  make(chan []byte, 256), // buffered for non-blocking sends
		}

		h.manager.RegisterClient(client)
		client.StartReadPump(h.manager.unregister, h.log)

		welcome := fmt.Sprintf(`{"type":"connected","topic":"%s","clientId":"%s"}`, client.Topic, client.ID)
		client.Send <- []byte(welcome)
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"broadcast-service"}`)
}

// statsHandler returns subscriber statistics for an item
func (h *Handler) statsHandler(itemKind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		topic := fmt.Sprintf("%s:%s", itemKind, vars["id"])

		count := h.manager.GetSubscriberCount(topic)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"topic":"%s","subscribers":%d}`, topic, count)
	}
}
