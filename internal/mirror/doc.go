// Package mirror sequences credential resolution, repository enumeration,
// migration request construction and dispatch into a single migration run,
// and exposes the migrate command that drives it.
package mirror
