// Package middleware exposes HTTP adapters for authcore.Engine session
// validation and route authorization.
//
// # Guards
//
//   - [Guard] — validate + role/permission requirement; empty requirement
//     means public.
//   - [RequireAuth] — validate only, no role or permission check.
//   - [RequireRoles] — validate + membership in any of the named roles.
//
// Each guard reads the Authorization bearer header, calls Engine.Validate
// and Engine.Authorize, and injects the resolved user into the request
// context for [UserFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication or authorization logic itself.
package middleware
