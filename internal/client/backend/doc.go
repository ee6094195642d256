// Package backend contains the client-side adapters for the hosted backend.
//
// # Overview
//
// The package provides:
//  1. AuthService, the contract of the hosted auth API (password sign-in,
//     sign-up, sign-out, current session, auth-state change events), and
//     HTTPAuthClient, its REST implementation. The client keeps the current
//     session in memory and transparently refreshes it when the access token
//     is about to expire.
//  2. DataService, a generic table contract (select/insert/update/delete/
//     count) used for profiles and every other entity, and
//     PostgresDataService, its implementation over database/sql + pgx.
//  3. ObjectStorage and S3Storage for uploading media (avatars) to the
//     backend's S3-compatible storage and resolving public URLs.
//
// # Error Handling
//
// Every adapter maps transport failures onto the sentinel errors of package
// common (ErrInvalidCredentials, ErrNetwork, ErrConstraintViolation, ...).
// Callers match them with errors.Is; the original backend message is kept in
// the error text so it can be shown to the user.
//
// # Concurrency & Contexts
//
// All adapters are safe for concurrent use. Every blocking operation accepts a
// context.Context and honors cancellation.
package backend
