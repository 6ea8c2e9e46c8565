// Package route defines the hostname-to-target mapping managed through the
// API and the validation rules applied to it before it reaches a store.
package route
