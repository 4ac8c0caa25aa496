package middleware

import (
	"net/http"

	"github.com/tuanvumaihuynh/sale-ledger/pkg/correlationid"
)

// CorrelationID adopts the caller-provided correlation ID or generates one,
// puts it on the request context and echoes it back in the response header.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" {
				id = correlationid.Generate()
			}

			w.Header().Set(correlationid.Header, id)
			r = r.WithContext(correlationid.NewContext(r.Context(), id))

			next.ServeHTTP(w, r)
		})
	}
}
