// Package models defines the client-side auth and profile models shared by
// the backend adapters, the local cache and the session manager.
package models
