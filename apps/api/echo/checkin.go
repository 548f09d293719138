package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core/checkin"
)

type checkinApi struct {
	svc *checkin.Service
}

func registerCheckinAPI(g *echo.Group, jwt, syncUsr echo.MiddlewareFunc, svc *checkin.Service) {
	api := checkinApi{svc: svc}

	ag := g.Group("", jwt, syncUsr)
	ag.POST("/signal", api.postSignal)
	ag.DELETE("/signal/:id", api.undoSignal)
	ag.POST("/emotion", api.shareEmotion)
	ag.POST("/sos", api.raiseSOS)
	ag.POST("/med/take", api.takeMedication)
}

// Handlers

func (api *checkinApi) postSignal(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data checkin.NewSignal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignal")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	sig, err := api.svc.PostSignal(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": sig})
}

func (api *checkinApi) undoSignal(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err = api.svc.UndoSignal(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (api *checkinApi) shareEmotion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data checkin.NewEmotion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEmotion")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	emo, err := api.svc.ShareEmotion(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": emo})
}

func (api *checkinApi) raiseSOS(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ev, err := api.svc.RaiseSOS(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": ev})
}

func (api *checkinApi) takeMedication(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data checkin.TakeMedication
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TakeMedication")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	lg, med, err := api.svc.TakeMedication(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": lg, "medication": med})
}
