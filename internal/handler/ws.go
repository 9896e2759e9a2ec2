package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"tush00nka/s3files/internal/ws"
)

type WSHandler struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, upgrader *websocket.Upgrader) *WSHandler {
	return &WSHandler{hub: hub, upgrader: upgrader}
}

func (h *WSHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/records/{id:[0-9]+}", h.subscribe).Methods("GET")
}

// @Summary Subscribe to record updates
// @Tags records
// @Param id path int true "Record ID"
// @Router /ws/records/{id} [get]
func (h *WSHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(r.Context(), conn, recordID)
	room := h.hub.GetRoom(recordID)
	if !room.RegisterClient(client) {
		client.Close()
		return
	}

	go func() {
		if err := client.WritePump(); err != nil {
			log.Printf("websocket write failed: %v", err)
		}
	}()
	client.ReadPump()
	room.UnregisterClient(client)
}
