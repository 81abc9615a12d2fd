package media

import (
	"net/http"
	"os"
	"strings"
)

// ServeHTTP serves a stored asset named by the request path after [URLPrefix].
//
// Content-Type comes from the file extension; ranges and conditional requests are
// handled by [http.ServeContent].
func (u *Uploads) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name == "" {
		name = strings.TrimPrefix(r.URL.Path, URLPrefix)
	}

	path, ok := u.Path(URLPrefix + name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", ContentType(name))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
