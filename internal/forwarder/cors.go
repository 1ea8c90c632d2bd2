package forwarder

import "net/http"

const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"
)

// applyCORS sets the CORS headers for an endpoint that accepts method.
func applyCORS(h http.Header, method string) {
	h.Set(headerAllowOrigin, "*")
	h.Set(headerAllowMethods, allowedMethods(method))
	h.Set(headerAllowHeaders, "Content-Type")
}

func allowedMethods(method string) string {
	return method + ", " + http.MethodOptions
}
