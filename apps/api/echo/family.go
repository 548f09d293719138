package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
)

type familyApi struct {
	svc *family.Service
}

// InviteRequest is the body of the invite generation call; the email is
// optional and triggers delivery of the code.
type InviteRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

func (ir *InviteRequest) Validate() error {
	ir.Email = core.CleanString(ir.Email, true /* lower */)
	return core.Validate.Struct(ir)
}

func registerFamilyAPI(g *echo.Group, jwt, syncUsr echo.MiddlewareFunc, svc *family.Service) {
	api := familyApi{svc: svc}

	ag := g.Group("", jwt, syncUsr)
	ag.POST("/family", api.create)
	ag.GET("/family", api.retrieve)
	ag.POST("/invite/generate", api.generateInvite)
	ag.POST("/invite/accept", api.acceptInvite)
}

// Handlers

func (api *familyApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data family.NewFamily
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFamily")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	fam, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"ok": true, "data": fam})
}

func (api *familyApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	reqCtx := ctx.Request().Context()

	mbr, err := api.svc.ActiveMember(reqCtx, claims.Subject)
	if err != nil {
		return err
	}
	fam, err := api.svc.Get(reqCtx, mbr.FamilyID)
	if err != nil {
		return err
	}
	members, err := api.svc.ActiveMembers(reqCtx, mbr.FamilyID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": fam, "members": members})
}

func (api *familyApi) generateInvite(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data InviteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InviteRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	inv, _, err := api.svc.GenerateInvite(ctx.Request().Context(), claims.Subject, data.Email)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"ok":         true,
		"code":       inv.Code,
		"expires_at": inv.ExpiresAt,
	})
}

func (api *familyApi) acceptInvite(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data family.AcceptInvite
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AcceptInvite")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	fam, err := api.svc.AcceptInvite(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "data": fam})
}
