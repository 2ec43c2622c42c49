package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps JSON request bodies.
const DefaultMaxBodySize int64 = 1 << 20

// multipartOverhead leaves room for boundaries and part headers around an
// upload of the maximum file size.
const multipartOverhead int64 = 64 << 10

// RequestSize wraps the body in http.MaxBytesReader. Reading past maxBytes
// fails with *http.MaxBytesError, which handlers answer with 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// UploadRequestSize limits multipart bodies to one file of maxFileBytes.
func UploadRequestSize(maxFileBytes int64) func(http.Handler) http.Handler {
	return RequestSize(maxFileBytes + multipartOverhead)
}
