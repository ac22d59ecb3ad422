package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	errorTypeUnauthorized = "https://ledger.app/errors/unauthorized"
	errorTypeRateLimit    = "https://ledger.app/errors/rate-limit"
)

// problem mirrors handler.ProblemDetails. It is duplicated so middleware
// does not import the handler package.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeProblem(c echo.Context, status int, typ, title, detail string) error {
	return c.JSON(status, problem{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

func unauthorizedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusUnauthorized, errorTypeUnauthorized, "Unauthorized", detail)
}

func rateLimitError(c echo.Context, retryAfter int) error {
	return writeProblem(c, http.StatusTooManyRequests, errorTypeRateLimit, "Rate Limit Exceeded",
		fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter))
}
