package echoapi

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/quiz"
)

type quizApi struct {
	svc       *quiz.Service
	scheduler *quiz.Scheduler
}

func registerQuizAPI(
	g *echo.Group,
	jwt, syncUsr echo.MiddlewareFunc,
	conf *core.Config,
	svc *quiz.Service,
	scheduler *quiz.Scheduler,
) {
	api := quizApi{svc: svc, scheduler: scheduler}

	qg := g.Group("/quiz")

	// triggered by an external timer, not a session
	qg.POST("/cron", api.cron, cronAuthMiddleware(conf))

	ag := qg.Group("", jwt, syncUsr)
	ag.GET("/today", api.today)
	ag.POST("/respond", api.respond)
	ag.POST("/nudge", api.nudge)
	ag.GET("/schedule", api.getSchedule)
	ag.POST("/schedule", api.setSchedule)
	ag.GET("/history", api.history)
}

// Handlers

// cron runs the creation and closing sweeps concurrently and reports what
// they did. Each sweep isolates per-family failures itself; only a failure
// to enumerate work at all surfaces here.
func (api *quizApi) cron(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var (
		wg                  sync.WaitGroup
		result              quiz.SweepResult
		closed              []string
		createErr, closeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		result, createErr = api.scheduler.CreationSweep(reqCtx)
	}()
	go func() {
		defer wg.Done()
		closed, closeErr = api.scheduler.ClosingSweep(reqCtx)
	}()
	wg.Wait()

	if createErr != nil {
		return core.NewAPIError("server_error", createErr.Error())
	}
	if closeErr != nil {
		return core.NewAPIError("server_error", closeErr.Error())
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"created": result.Created,
		"skipped": result.Skipped,
		"closed":  closed,
	})
}

func (api *quizApi) today(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	view, err := api.svc.Today(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": view})
}

func (api *quizApi) respond(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.SubmitResponse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitResponse")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.svc.Respond(ctx.Request().Context(), claims.Subject, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (api *quizApi) nudge(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.NudgeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NudgeRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	sent, err := api.svc.Nudge(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "sent": sent})
}

func (api *quizApi) getSchedule(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sch, err := api.svc.GetSchedule(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": sch})
}

func (api *quizApi) setSchedule(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.SetSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetSchedule")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	sch, err := api.svc.SetSchedule(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": sch})
}

func (api *quizApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	items, next, err := api.svc.History(ctx.Request().Context(), claims.Subject, ctx.QueryParam("cursor"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": items, "next_cursor": next})
}
