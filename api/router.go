// Package api exposes the admin, public, and read surfaces of §6 over
// HTTP, routed with chi exactly as the gateway routes its own proxied
// surfaces, mounting directly onto the in-process engines rather than
// proxying to a separate backend process.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apimw "liquidgov/api/middleware"
	"liquidgov/native/attestation"
	"liquidgov/native/delegation"
	"liquidgov/native/streaming"
)

// Config wires the three engines and the cross-cutting middleware into one
// handler. Authenticator, Observability, and CORS are all optional: a nil
// Authenticator leaves the admin surface open, matching a deployment that
// terminates auth upstream.
type Config struct {
	Delegation    *delegation.Engine
	Attestation   *attestation.Verifier
	Streaming     *streaming.Allocator
	Authenticator *apimw.Authenticator
	Observability *apimw.Observability
	CORS          apimw.CORSConfig
}

type handlers struct {
	delegation  *delegation.Engine
	attestation *attestation.Verifier
	streaming   *streaming.Allocator
}

// adminScope gates every admin-surface mutation behind a single shared
// scope. set_reward_allocator is deliberately absent from this surface: it
// wires the AV->RA collaborator at process start-up in cmd/liquidgovd, not
// at request time.
const adminScope = "liquidgov.admin"

// New builds the complete HTTP handler: CORS and observability apply
// globally, the admin surface requires adminScope, the public and read
// surfaces are open (per-caller-identity is asserted in the request body
// for mutations; reads are unauthenticated by design).
func New(cfg Config) (http.Handler, error) {
	h := &handlers{delegation: cfg.Delegation, attestation: cfg.Attestation, streaming: cfg.Streaming}

	obs := cfg.Observability
	if obs == nil {
		obs = apimw.NewObservability(apimw.ObservabilityConfig{}, nil)
	}
	auth := cfg.Authenticator
	if auth == nil {
		auth = apimw.NewAuthenticator(apimw.AuthConfig{Enabled: false}, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(apimw.CORS(cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(obs.Middleware("admin"))
		ar.Use(auth.Middleware(adminScope))
		ar.Post("/topics", h.createTopic)
		ar.Post("/topics/{topic}/active", h.setTopicActive)
		ar.Post("/topics/{topic}/threshold", h.setTopicThreshold)
		ar.Post("/operators", h.registerOperator)
		ar.Delete("/operators/{id}", h.deregisterOperator)
		ar.Post("/pools/{topic}/rate", h.setPoolRate)
	})

	r.Route("/v1", func(pr chi.Router) {
		pr.Use(obs.Middleware("public"))
		pr.Post("/delegations/{topic}", h.delegate)
		pr.Post("/delegations/{topic}/revoke", h.revoke)
		pr.Post("/dead-ends/{topic}", h.declareDeadEnd)
		pr.Post("/dead-ends/{topic}/revoke", h.revokeDeadEnd)
		pr.Post("/attestations", h.submitAttestation)

		pr.Get("/topics/{topic}", h.getTopic)
		pr.Get("/topics/{topic}/edges", h.activeEdges)
		pr.Get("/delegations/{topic}/{participant}", h.getDelegation)
		pr.Get("/delegations/{topic}/{participant}/terminal", h.getTerminal)
		pr.Get("/delegations/{topic}/{participant}/chain", h.getChain)
		pr.Get("/delegations/{topic}/{participant}/depth", h.getDepth)
		pr.Get("/dead-ends/{topic}/{participant}", h.isDeadEnd)
		pr.Get("/power/{topic}/{participant}", h.getPower)
		pr.Get("/operators/{id}/health", h.operatorHealth)
		pr.Get("/flows/{topic}/{recipient}", h.flowView)
		pr.Get("/pools/{topic}", h.poolView)
		pr.Get("/estimate/{topic}", h.estimateMonthly)
		pr.Post("/tally/{topic}", h.tallyBallot)
	})

	r.Handle("/metrics", obs.MetricsHandler())

	return r, nil
}
