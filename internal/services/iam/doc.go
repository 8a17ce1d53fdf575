// Package iam provides the authentication services of campusapi.
//
// The IAM service centralizes sign-up, sign-in, token verification and revocation.
// It provides:
//
//   - Authentication via three credential sources (password, Google, bearer token)
//   - Role assignment from email rules at principal creation
//   - Token issuance and revocation (logout, administrator revoke)
//   - Principal management for the CLI (create, set-role, disable)
//
// Architecture:
//
//   - Authenticator interface: one strategy per credential source
//   - Principal struct: unified authentication result (immutable)
//   - Service interface: facade used by the HTTP handlers, middleware and CLI
//
// Request Flow:
//
//	POST /auth/login        → PasswordAuthenticator → Principal → TokenIssuer
//	GET  /auth/google/...   → IdentityBroker        → Principal → TokenIssuer
//	any protected request   → BearerAuthenticator   → Principal (from claims)
//
// Roles are resolved ONCE, when a principal is first created, and travel in the token
// afterwards. Authorization decisions use the role from the verified token without
// touching the credential store.
package iam
