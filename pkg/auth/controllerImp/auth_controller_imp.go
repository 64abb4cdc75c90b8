package controllerImp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"daytrip/pkg/auth/controller"
	"daytrip/pkg/auth/token"
	"daytrip/pkg/middleware"
)

type authCtrl struct {
	tokens *token.Issuer
	log    *slog.Logger
}

func NewAuthController(tokens *token.Issuer, log *slog.Logger) controller.AuthController {
	return &authCtrl{tokens: tokens, log: log}
}

// IssueToken signs a token for the caller's current session, so clients
// without cookies can keep their recommend-again exclusions.
func (h *authCtrl) IssueToken(c echo.Context) error {
	sid := middleware.SessionID(c)
	tok, exp, err := h.tokens.Create(sid)
	if err != nil {
		h.log.Error("[auth] token signing failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "INTERNAL", "message": "could not issue token"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":     tok,
		"sessionId": sid,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}

func (h *authCtrl) WhoAmI(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"sessionId": middleware.SessionID(c)})
}
