// Package auth provides authentication and authorisation for Taskdeck.
//
// It implements a 2-tier role model (user → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token pairs with single-active-session rotation
//   - Explicit, structured input validation (per-field error lists)
//   - Static role checks (compile-time, no database lookup)
//
// The refresh token model is deliberately narrow: the SHA-256 hash of the
// most recently issued refresh token is mirrored on the account row, and a
// refresh only succeeds when the presented token matches that stored value.
// Exchanging a refresh token atomically overwrites the stored hash, so every
// rotation invalidates all previously issued refresh tokens for the account.
// Access tokens are stateless and remain bearer-valid until their own expiry;
// logout revokes future refresh, not the current access token.
package auth
