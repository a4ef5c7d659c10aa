package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllDatas merges a run's rows into the server state without
// broadcasting. The state keeps only the freshest rows per security.
func (s *APIServer) UpdateAllDatas(data *models.MLatestData) {
	if data == nil {
		return
	}

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if s.latestState.Results == nil {
		s.latestState.Results = make(map[string][]models.MStdevResult)
	}
	for securityID, rows := range data.Results {
		s.latestState.Results[securityID] = rows
	}

	if data.Report != nil {
		s.latestState.Report = data.Report
	}
	s.latestState.Timestamp = data.Timestamp
	s.latestState.Type = "UPDATE"
}

// -----------------------------------------------------------------------------

// Broadcast queues a payload for every connected client.
func (s *APIServer) Broadcast(data *models.MLatestData) {
	if data == nil {
		return
	}

	// The buffered channel absorbs bursts; the hub loop does the fan-out.
	s.broadcast <- data
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.subscribeResponse(cmd.Securities)
	s.stateMutex.RUnlock()

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// subscribeResponse answers a subscribe command with a snapshot filtered to
// the requested securities. No securities means everything.
func (s *APIServer) subscribeResponse(securities []string) *models.MLatestData {
	return &models.MLatestData{
		Type:      "INITIAL",
		Results:   filterResults(s.latestState.Results, securities),
		Report:    s.latestState.Report,
		Timestamp: time.Now().Unix(),
	}
}
