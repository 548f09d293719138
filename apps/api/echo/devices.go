package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core/user"
)

type deviceApi struct {
	svc *user.Service
}

func registerDeviceAPI(g *echo.Group, jwt, syncUsr echo.MiddlewareFunc, svc *user.Service) {
	api := deviceApi{svc: svc}

	ag := g.Group("/devices", jwt, syncUsr)
	ag.POST("/register", api.register)
}

// Handlers

func (api *deviceApi) register(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data user.RegisterDevice
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterDevice")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	dev, err := api.svc.RegisterDevice(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": dev})
}
