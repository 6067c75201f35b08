package httpx

import (
	"net/http"
	"strings"
)

// RequireModule the caller's token must grant access to the named module.
func RequireModule(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, m := range required {
		want[m] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := modulesFromCtx(r.Context())

			// At least one required module must be present.
			for _, m := range have {
				if _, ok := want[m]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeModuleError(w, required...)
		})
	}
}

// RFC 6750-style error response for insufficient module access.
func writeModuleError(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_scope"))
}
