package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/domain/access"
)

const (
	HeaderActorID        = "X-Actor-Id"
	HeaderActorName      = "X-Actor-Name"
	HeaderActorRole      = "X-Actor-Role"
	HeaderActorCompanies = "X-Actor-Companies"

	actorKey = "actor"
)

var reActorID = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,64}$`)

// Actor reads the caller identity forwarded by the gateway. Mutating requests must carry
// X-Actor-Id; reads pass through with whatever was sent.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			a := access.Actor{
				ID:        strings.TrimSpace(req.Header.Get(HeaderActorID)),
				Name:      strings.TrimSpace(req.Header.Get(HeaderActorName)),
				Role:      access.ParseRole(req.Header.Get(HeaderActorRole)),
				Companies: splitCompanies(req.Header.Get(HeaderActorCompanies)),
			}
			if isMutating(req.Method) {
				if a.ID == "" {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + HeaderActorID})
				}
				if !reActorID.MatchString(a.ID) {
					return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid " + HeaderActorID})
				}
			}
			c.Set(actorKey, a)
			return next(c)
		}
	}
}

// ActorFrom returns the actor set by Actor, or the zero actor.
func ActorFrom(c echo.Context) access.Actor {
	a, _ := c.Get(actorKey).(access.Actor)
	return a
}

func splitCompanies(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
