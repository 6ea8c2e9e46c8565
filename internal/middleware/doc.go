// Package middleware contains the http.Handler wrappers every request passes
// through: request identification and completion accounting (Observe), panic
// recovery (Recover) and CORS handling (CORS).
package middleware
