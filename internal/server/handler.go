package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/media"
)

// Assets serves stored uploads under [media.URLPrefix].
type Assets struct {
	*media.Uploads
}

// Routes implements [Handler].
func (Assets) Routes() []string {
	return []string{"GET " + media.URLPrefix + "{file}"}
}

// NewHandler assembles the router: request ids, recovery, access logs, the API and assets.
func NewHandler(api *API, uploads *media.Uploads, logger *log.Logger) http.Handler {
	r := NewBasicRouter()
	r.Use(WithRequestID(), WithLogging(logger), WithRecovery(logger))

	api.Register(r)
	r.Handler(Assets{uploads})
	return r
}
