// Package session persists ActiveToken rows in Redis: the server-side
// record that makes a signed bearer token revocable.
//
// # Invariant
//
// At most one row exists per user at any time. [Store.Save] deletes the
// user's prior row before inserting the new one, which is how a login
// elsewhere invalidates earlier sessions. Validation requires the literal
// token string to be present; a signed, unexpired token with no row is
// treated as revoked.
package session
