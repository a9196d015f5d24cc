package gate

import (
	"github.com/gofiber/fiber/v2"
)

// AuthCookieName is the cookie carrying the admission token. The cookie is
// origin-wide because the API endpoints live outside the room paths; per-room
// validity is enforced by the membership set, not by cookie scoping.
const AuthCookieName = "x-auth-token"

// MiddlewareConfig configures the admission middleware.
type MiddlewareConfig struct {
	// SecureCookies sets the Secure flag on issued credentials. Off for
	// local development over plain HTTP.
	SecureCookies bool
}

// Middleware intercepts every navigation to a room-scoped path and runs the
// admission gate before anything behind it is reachable. Rejections redirect
// to the home view with a machine-readable reason code; admissions set the
// scoped credential cookie and proceed.
func Middleware(g *Gate, cfg MiddlewareConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.Params("roomId")
		if roomID == "" {
			return c.Redirect("/")
		}

		signals := NavigationSignals{
			Method:       c.Method(),
			UserAgent:    c.Get(fiber.HeaderUserAgent),
			SecFetchDest: c.Get("Sec-Fetch-Dest"),
			SecFetchMode: c.Get("Sec-Fetch-Mode"),
		}

		decision, err := g.Evaluate(c.UserContext(), roomID, c.Cookies(AuthCookieName), signals)
		if err != nil {
			// Transient store trouble is retryable; never treat it as a
			// missing room.
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "store_unavailable",
				"message": "Temporary storage failure, please retry",
			})
		}

		if !decision.Allow {
			return c.Redirect("/?error=" + decision.Reason)
		}

		if decision.Token != "" {
			c.Cookie(&fiber.Cookie{
				Name:     AuthCookieName,
				Value:    decision.Token,
				Path:     "/",
				HTTPOnly: true,
				Secure:   cfg.SecureCookies,
				SameSite: fiber.CookieSameSiteStrictMode,
			})
		}

		return c.Next()
	}
}
