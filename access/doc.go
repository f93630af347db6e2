// Package access implements role/permission-based route authorization.
//
// Routes declare a [Requirement]; the [Evaluator] loads the caller's
// effective grants (roles plus the permissions those roles carry) in one
// lookup and applies the comparison policy: roles are OR-matched, required
// permissions are AND-matched, both dimensions independently and
// conjunctively, all names compared case-insensitively. An empty
// requirement means the route is public.
package access
