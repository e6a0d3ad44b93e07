// Package source enumerates repositories from a GitHub-style REST API.
//
// Enumerator walks /user/repos (or /users/<name>/repos without a token) through
// go-github page by page until an empty page is returned. Each record is checked
// strictly while it is converted into a RepositoryDescriptor, and the ones
// accepted by a RunFilter are kept in API order. Transport and decoding failures
// abort the enumeration without partial results.
package source
