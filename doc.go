// Package authcore provides an embeddable session and access-control
// engine: password and federated sign-in, single-active-session JWT
// bearer tokens with server-side revocation, role/permission route
// authorization, and time-boxed email verification codes.
//
// The engine owns its session and verification state in Redis. User
// identity, profiles, and role/permission membership live in the host
// application's store, reached through the [Directory] interface; code
// delivery goes through [Mailer]. Engine methods are safe to call from
// multiple goroutines after construction through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface: [Engine], [Builder], [Config], the
// collaborator interfaces, and value types. Token signing, password
// hashing, session storage, and authorization evaluation live in the
// jwt, password, session, and access sub-packages; the verification
// store and audit dispatch are unexported.
//
// # Session model
//
// A user holds at most one live session. Login replaces the previous
// token; Validate accepts a token only while its literal string is still
// the stored one, so logout and re-login revoke instantly regardless of
// the token's remaining signed lifetime.
package authcore
