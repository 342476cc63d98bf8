package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"mixlens/logger"
	"mixlens/model"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStatusSocket pushes every state change of a job until it ends.
// Unknown jobs get a single {"status":"unknown"} message.
func (s *Server) handleStatusSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	updates := s.deps.Runner.Subscribe(id)
	defer s.deps.Runner.Unsubscribe(id, updates)

	// The read loop only notices a client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sent := false
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				if !sent {
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteJSON(map[string]string{"status": "unknown"})
				}
				closeSocket(conn)
				return
			}
			if err := writeJob(conn, job); err != nil {
				logger.Debug("websocket write failed", logger.JobID(id), logger.ErrorField(err))
				return
			}
			sent = true
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJob(conn *websocket.Conn, job model.Job) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(job)
}

func closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
