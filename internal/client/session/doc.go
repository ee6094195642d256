// Package session implements the session manager: the single long-lived
// owner of the authentication session, the bound identity and the resolved
// profile of the signed-in user.
//
// # Lifecycle
//
// A Manager is created with NewManager, started once with Start and released
// with Close. Start runs the startup reconciliation:
//  1. the cached session (if any) is shown optimistically;
//  2. the auth service is asked for the authoritative session;
//  3. Reconcile merges the two, the live answer always wins and the cache is
//     rewritten when they differ;
//  4. any auth service error signs the user out locally and clears the cache.
//
// Start also installs the only subscription to the auth service's event
// stream. Repeated Start calls are no-ops.
//
// # Consistency
//
// Every change of the in-memory session is written to the cache before
// observers are notified. Profile fetches carry the user id and binding
// generation they were started for, plus a fetch sequence number; a result
// that no longer matches the current binding, or that is older than an
// already applied one, is discarded.
//
// Concurrent Login calls are not serialized: the one that completes last
// wins, matching the auth service, which keeps the last issued session.
//
// # Observers
//
// Subscribe registers a callback that receives a Snapshot after every
// change. Callbacks run synchronously and must not call back into the
// Manager's mutating methods.
package session
