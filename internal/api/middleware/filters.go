package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

// Logger logs every request once the chain has completed.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)

	log.Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Request handled")
}

// RecoverPanic turns a handler panic into a 500 response.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Str("path", req.Request.URL.Path).
				Msg("Recovered from panic")
			HandleErrorWithDetails(resp, "Unexpected server error", fmt.Sprint(r), http.StatusInternalServerError)
		}
	}()

	chain.ProcessFilter(req, resp)
}

// CompactJSON turns off go-restful's default indented entity output.
func CompactJSON(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	resp.PrettyPrint(false)
	chain.ProcessFilter(req, resp)
}
