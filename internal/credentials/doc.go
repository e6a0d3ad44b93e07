// Package credentials resolves the identities and secrets repomirror uses for
// the source and destination hosting services.
//
// Credentials come from a two-line file (sourceUser[:sourceSecret] followed by
// destUser:destSecret) or from interactive prompts, optionally completed with
// tokens found in the environment. Secrets are redacted from every textual and
// logged representation of Credentials.
package credentials
