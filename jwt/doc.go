// Package jwt issues and verifies the signed session bearer tokens used by
// authcore. Tokens are HS256-signed, carry {sub: user ID, email} claims,
// and are time-boxed by the configured TTL.
//
// A syntactically valid token is necessary but not sufficient for an
// authenticated session: the engine additionally requires the literal token
// string to be present in the active-token store, which is what makes
// server-side revocation possible with self-contained tokens.
package jwt
