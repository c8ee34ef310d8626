// Package http exposes the dashboard over a JSON API. Handlers are
// grouped by concern (data lifecycle, analytics, health) and mounted by
// the application router. Each browser session is identified by a cookie
// so concurrent users never see each other's data.
package http
