package authclient

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
)

const headerLocation = "Location"

// GuardMiddleware runs the route guard before handlers of a go-router app.
// Denied requests are redirected; allowed requests get the identity in
// their standard context.
func GuardMiddleware(guard *RouteGuard, route Route) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			decision := guard.Check(ctx.Context(), route)
			if !decision.Allowed {
				statusCode := http.StatusSeeOther
				if strings.EqualFold(ctx.Method(), http.MethodGet) {
					statusCode = http.StatusFound
				}
				ctx.SetHeader(headerLocation, decision.Redirect)
				return ctx.Status(statusCode).Send(nil)
			}

			if identity := guard.session.CurrentIdentity(); identity != nil {
				ctx.SetContext(WithIdentityContext(ctx.Context(), identity))
			}

			return next(ctx)
		}
	}
}
