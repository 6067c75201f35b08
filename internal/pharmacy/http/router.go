package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/service"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/httpx"
	"github.com/farmadigital/pharmacy/pkg/jwtx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	LoginService    *service.LoginService
	CardService     *service.CardService
	PurchaseService *service.PurchaseService
}

func NewRouter(
	verifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerCards()
	r.registerCheckout()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{LoginService: r.LoginService}

	// Strict limit on login: it is the brute-force surface.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerCards() {
	h := &CardsHandler{CardService: r.CardService}

	r.Mux.Handle("POST /v1/cards",
		httpx.Chain(http.HandlerFunc(h.HandleSave),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireModule("cards"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/cards",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireModule("cards"),
		),
	)
	r.Mux.Handle("DELETE /v1/cards/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireModule("cards"),
		),
	)
}

func (r *Router) registerCheckout() {
	h := &CheckoutHandler{PurchaseService: r.PurchaseService}

	r.Mux.Handle("POST /v1/checkout",
		httpx.Chain(http.HandlerFunc(h.HandleCheckout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireModule("checkout"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store))
}
