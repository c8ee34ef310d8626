// Package forecast projects a short-horizon trend from a single numeric
// column, optionally indexed by a date column. The series is resampled
// onto a regular calendar grid, gap-filled, and fitted with a polynomial
// whose degree follows a fixed sample-size rule (degree 2 from six points
// up, degree 1 below). The confidence band is a fixed-width normal
// approximation, 1.96 times the sample standard deviation of the fit
// residuals; it deliberately does not widen with forecast distance.
package forecast
