// Package services holds the application layer. DashboardService owns
// per-session state (the active dataset, role selections, last pivot) and
// orchestrates the parser, normalizer, analytics engine, insight detector,
// forecaster and report emitters behind one API for the HTTP handlers.
package services
