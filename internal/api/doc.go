// Package api serves the management endpoints under /api: route CRUD, the
// recent log lines, request analytics and host stats. Every route mutation
// is followed by a registry reload so the next dispatch sees the change.
package api
