// Package app assembles the application: configuration, logger, metrics,
// the dashboard service, the HTTP router and the server lifecycle.
package app
