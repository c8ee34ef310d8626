// Package analytics computes grand totals, descriptive statistics,
// correlations, and pivot tables over the active dataset. Every
// computation is a pure function of (dataset, parameters); the engine
// memoizes results keyed by the dataset version so repeated requests
// within a session are served from cache and can never go stale across a
// dataset replacement.
package analytics
