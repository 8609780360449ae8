// internal/handler/cors.go
package handler

import (
	"net/http"

	"github.com/go-chi/cors"
)

var publicCORS = cors.Handler(cors.Options{
	AllowOriginFunc: func(_ *http.Request, _ string) bool { return true },
	AllowedMethods:  []string{http.MethodPost, http.MethodOptions},
	AllowedHeaders:  []string{"Content-Type", "Authorization"},
	MaxAge:          300,
})

// CORS lets any origin call the public endpoints; the caller's Origin is
// reflected. Any OPTIONS request gets an empty 200.
func CORS(next http.Handler) http.Handler {
	return publicCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
