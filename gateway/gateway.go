// Package gateway assembles the farmgatewayd HTTP surface: the chi router
// from gateway/routes, JWT auth and rate-limit middleware, and the
// lifecycle event broker feeding the realtime websocket stream.
package gateway

import (
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/harvestlabs/farmengine/gateway/events"
	"github.com/harvestlabs/farmengine/gateway/middleware"
	"github.com/harvestlabs/farmengine/gateway/routes"
	"github.com/harvestlabs/farmengine/internal/engine"
)

// Options configures the assembled gateway handler.
type Options struct {
	Engine             *engine.Engine
	JWTSigningKey      string
	JWTIssuer          string
	AuthEnabled        bool
	RateLimitPerSecond float64
	RateLimitBurst     int
	Logger             *log.Logger
}

// New builds the gateway's http.Handler plus the event broker, so callers
// can publish additional events (e.g. from a background scheduler) beyond
// what the HTTP handlers themselves publish.
func New(opts Options) (http.Handler, *events.Broker) {
	broker := events.NewBroker()
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    opts.AuthEnabled,
		HMACSecret: opts.JWTSigningKey,
		Issuer:     opts.JWTIssuer,
	}, opts.Logger)
	limiter := middleware.NewRateLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst, opts.Logger)

	handler := routes.New(routes.Config{
		Engine:        opts.Engine,
		Events:        broker,
		Authenticator: auth,
		RateLimiter:   limiter,
	})

	return otelhttp.NewHandler(handler, "farmgatewayd"), broker
}
