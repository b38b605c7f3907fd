package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/docline/docline/chat"
	"github.com/docline/docline/server/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the router level; browser clients
		// connect from the configured frontends.
		return true
	},
}

// handleChatWS is the connection gate: the bearer credential is validated
// during the handshake, before the upgrade, so a connection that fails
// authentication never processes a single chat event. The resolved
// identity binds to the connection for its whole lifetime.
func (s *Server) handleChatWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			// Browsers cannot set headers on websocket dials; accept the
			// token as a query parameter at handshake time.
			accessToken = c.Query("token")
		}

		ident, apiErr := s.resolveCredential(accessToken)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for %s/%s: %v", ident.Role, ident.UserID, err)
			return
		}

		client := chat.NewClient(s.Hub, conn, ident.UserID, ident.Role, ident.DisplayName)
		go client.Run()
	}
}
