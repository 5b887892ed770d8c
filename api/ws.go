package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST surface allows any origin; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

// RegisterWS mounts the websocket endpoint. The token comes from the
// Authorization header or, for browser clients that cannot set headers on
// the upgrade request, the token query parameter.
func RegisterWS(e *echo.Echo, gw *stream.Gateway, auth Authenticator, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.GET("/ws", func(c echo.Context) error {
		var userID string
		var err error
		if h := c.Request().Header.Get("Authorization"); h != "" {
			userID, err = auth.UserIDFromAuthHeader(h)
		} else if token := c.QueryParam("token"); token != "" {
			userID, err = auth.UserIDFromBearer([]byte(token))
		} else {
			err = errMissingAuthorization
		}
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade already wrote the failure response.
			return nil
		}
		if _, err := gw.Accept(c.Request().Context(), conn, userID); err != nil {
			logger.WithField("user", userID).Errorf("accept connection: %v", err)
			conn.Close()
		}
		return nil
	})
}
