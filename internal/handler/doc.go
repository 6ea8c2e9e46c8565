// Package handler implements request dispatch.
//
// Dispatcher resolves the request host against the active route snapshot and
// forwards matches to the backend client. Requests that match no route go to
// a fallback handler, normally a mux holding the management API in front of
// the Fallthrough chain: static assets, the fixed upstream mount, the debug
// echo mount and finally 404.
package handler
