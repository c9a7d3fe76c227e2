package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Muahhidun/zakupwedrink/internal/app"
)

// maxRequestBody caps incoming JSON bodies; no endpoint here accepts file
// uploads so this is generous but not unbounded.
const maxRequestBody = 1 << 20 // 1 MiB

// NewRouter assembles the chi router the same way the teacher's
// cmd/server/main.go wires middleware: request ID, structured logging,
// panic recovery, CORS, then body-size limiting, ahead of the route table.
func NewRouter(svc *app.Service, log zerolog.Logger, allowedOrigins []string) http.Handler {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(joinOrigins(allowedOrigins)))
	r.Use(RequestBodyLimit(maxRequestBody))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", h.ListCatalog)
		r.Post("/catalog", h.AddProduct)

		r.Post("/submissions", h.SubmitStock)
		r.Get("/submissions/pending", h.ListPendingSubmissions)
		r.Post("/submissions/{id}/approve", h.ApproveSubmission)
		r.Post("/submissions/{id}/reject", h.RejectSubmission)

		r.Post("/orders/draft", h.BuildOrderDraft)
		r.Post("/orders/confirm", h.ConfirmOrderDraft)
		r.Post("/orders/{id}/complete", h.CompleteOrder)
		r.Post("/orders/{id}/cancel", h.CancelOrder)

		r.Post("/companies", h.CreateCompany)
	})

	return r
}

func joinOrigins(origins []string) string {
	out := ""
	for i, o := range origins {
		if i > 0 {
			out += ","
		}
		out += o
	}
	return out
}
