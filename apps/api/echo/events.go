package echoapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
	realtimesvc "github.com/woolzip/backend/services/realtime"
)

var upgrader = websocket.Upgrader{
	// Cross-origin dials are fine; auth happens at the JWT layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type eventsApi struct {
	famSvc *family.Service
	hub    *realtimesvc.Hub
	logger core.Logger
}

func registerEventsAPI(g *echo.Group, jwt echo.MiddlewareFunc, famSvc *family.Service, hub *realtimesvc.Hub, logger core.Logger) {
	api := eventsApi{famSvc: famSvc, hub: hub, logger: logger}

	// browsers cannot set headers on websocket dials; accept ?token=
	g.GET("/events", api.connect, queryTokenMiddleware(), jwt)
}

// connect upgrades the session's connection and subscribes it to the
// caller's family feed until the client goes away.
func (api *eventsApi) connect(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	mbr, err := api.famSvc.ActiveMember(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		api.logger.Warn(fmt.Sprintf("upgrading websocket: %v", err), err)
		return nil
	}

	api.hub.AddConnection(mbr.FamilyID, conn)
	defer api.hub.RemoveConnection(mbr.FamilyID, conn)

	// clients never send anything meaningful; the read loop only detects
	// disconnects and keeps control frames flowing
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}
