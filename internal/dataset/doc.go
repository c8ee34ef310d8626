// Package dataset defines the core tabular data model: raw tables produced
// by parsers, the normalized Dataset held by a session, and the session
// state that owns it.
//
// A Dataset is immutable once installed except for explicit, user-triggered
// date coercion of a single column. Replacing the dataset resets the user's
// column role selections.
package dataset
