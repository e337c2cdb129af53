package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades the request and subscribes the socket. identify
// resolves the caller's user id from the request ("" when anonymous); it
// runs before the upgrade so auth middleware has already had its say.
func WSHandler(hub *Hub, identify func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID string
		if identify != nil {
			userID = identify(c)
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		if err := hub.AddWS(ws, userID); err != nil {
			_ = ws.Close()
			return
		}
		hub.logger.Info("ws client connected", "user_id", userID)

		// ignore incoming messages
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.logger.Info("ws client disconnected", "user_id", userID)
	}
}
