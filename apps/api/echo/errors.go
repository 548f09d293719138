package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	"github.com/woolzip/backend/core/user"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// apiError is the failure half of the response envelope. The code string is
// the authoritative discriminator for clients; the HTTP status only mirrors it.
type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// sentinelCodes maps domain errors to their wire code and HTTP status.
var sentinelCodes = map[error]struct {
	status int
	code   string
}{
	family.ErrNoFamily:            {http.StatusBadRequest, "no_family"},
	family.ErrAlreadyInFamily:     {http.StatusBadRequest, "already_in_family"},
	family.ErrInvalidInvite:       {http.StatusBadRequest, "invalid_invite"},
	family.ErrNotFound:            {http.StatusNotFound, "not_found"},
	user.ErrNotFound:              {http.StatusNotFound, "not_found"},
	checkin.ErrNotFound:           {http.StatusNotFound, "not_found"},
	checkin.ErrMedicationNotFound: {http.StatusNotFound, "not_found"},
	checkin.ErrAlreadyShared:      {http.StatusBadRequest, "already_shared"},
	checkin.ErrAlreadyTaken:       {http.StatusBadRequest, "already_taken"},
	quiz.ErrNotFound:              {http.StatusNotFound, "not_found"},
	quiz.ErrClosed:                {http.StatusBadRequest, "closed"},
	quiz.ErrAlreadyAnswered:       {http.StatusBadRequest, "already_answered"},
	quiz.ErrBeforeTime:            {http.StatusBadRequest, "before_time"},
	quiz.ErrQuestionsDepleted:     {http.StatusGone, "depleted"},
}

// apiErrorCodes maps core.APIError codes to HTTP statuses; unknown codes
// default to 400.
var apiErrorCodes = map[string]int{
	"misconfigured": http.StatusInternalServerError,
	"server_error":  http.StatusInternalServerError,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that wraps
// every failure in the {ok:false, error:{code, message}} envelope.
// signalShutdown is called whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		apiErr := apiError{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				status = http.StatusUnauthorized
				apiErr.Code = "unauthorized"
				if msg, ok := origErr.Message.(string); ok {
					apiErr.Message = msg
				}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			status = origErr.Code
			switch status {
			case http.StatusUnauthorized:
				apiErr.Code = "unauthorized"
			case http.StatusNotFound:
				apiErr.Code = "not_found"
			case http.StatusForbidden:
				apiErr.Code = "forbidden"
			default:
				apiErr.Code = "bad_request"
			}
			if msg, ok := origErr.Message.(string); ok {
				apiErr.Message = msg
			}
		case validator.ValidationErrors:
			status = http.StatusBadRequest
			apiErr.Code = "bad_request"
			apiErr.Message = "validation failed"
			apiErr.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				apiErr.Fields[vErr.Field()] = vErr.Translate(core.Translator)
			}
		case *core.ValidationError:
			status = http.StatusBadRequest
			apiErr.Code = "bad_request"
			apiErr.Message = origErr.Error()
			if origErr.Fields != nil {
				apiErr.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					apiErr.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.APIError:
			apiErr.Code = origErr.Code
			apiErr.Message = origErr.Message
			var ok bool
			if status, ok = apiErrorCodes[origErr.Code]; !ok {
				status = http.StatusBadRequest
			}
		default:
			if mapped, ok := sentinelCodes[errors.Cause(err)]; ok {
				status = mapped.status
				apiErr.Code = mapped.code
				apiErr.Message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error; almost always the store
			status = http.StatusInternalServerError
			apiErr.Code = "db_error"
			apiErr.Message = http.StatusText(http.StatusInternalServerError)

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.DisplayName = claims.DisplayName
				usr.Email = claims.Email
			}
			logger.Error(apiErr.Message, errors.Wrap(err, apiErr.Message), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			apiErr.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, echo.Map{"ok": false, "error": apiErr})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
