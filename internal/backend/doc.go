// Package backend forwards requests to route targets.
//
// A Client performs one single-shot forward per call: the method, path, query
// and body are preserved and the request is sent to the target URL with the
// original path appended. One timeout bounds the whole exchange, from dialing
// through reading the last byte of the response. Any transport failure,
// timeouts included, is answered with 504 and a JSON body describing the
// failure. There are no retries.
package backend
