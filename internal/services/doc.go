// Package services defines the [Library] interface the terminal player reads songs through and
// implements it over the tunebox REST API.
//
// # Library Interface
//
// A [Library] lists songs and playlists and resolves a playlist's ordered songs. The player
// only depends on this interface, so tests substitute an in-process implementation.
//
// # API Client
//
// [APIService] issues raw requests ([APIService.Get], [APIService.Post], [APIService.Delete])
// and decodes the typed endpoints on top of them. Uploads are sent as multipart forms with
// the title, artist, audio and cover parts the server expects.
//
// # Error Handling
//
// Non-2xx responses are decoded from the server's {"message", "requestId"} body and
// wrapped in the sentinel matching the status:
//   - 400 : [shared.ErrValidation]
//   - 404 : [shared.ErrNotFound]
//   - 429 : [shared.ErrTooManyRequests]
//   - 503 : [shared.ErrServiceUnavailable]
//   - other : [shared.ErrAPIRequest]
package services
