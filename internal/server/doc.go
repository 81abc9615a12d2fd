// Package server exposes the song library over a JSON REST API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method-qualified patterns on an [http.ServeMux], so requests
// with an unsupported method receive 405 and path wildcards are available through
// [http.Request.PathValue].
//
// [Middleware] wraps handlers in reverse order (last added executes first). The stack
// installed by [NewHandler] is request ids, panic recovery and access logging.
//
// # API
//
// [API] registers the /api routes against a [models.Store]. Errors are rendered as
// {"message", "requestId"} with the status chosen by [StatusFor]:
//   - [shared.ErrValidation] : 400
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrTooManyRequests] : 429
//   - anything else : 500, with the cause logged and a generic message returned
//
// Song uploads go through [media.Uploads] and are throttled by a token bucket.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler
// interface and adds routes, allowing a handler to own several route patterns.
// Stored assets are served this way under /uploads/.
package server
