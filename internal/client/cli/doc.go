// Package cli provides the interactive Adullam command-line client.
//
// It drives a session.Manager from a simple REPL: register, log in and out,
// inspect the derived current user, edit the profile, upload an avatar and
// count rows through the data service. State changes reported by the
// manager are echoed as they happen, and the session is refreshed in the
// background on the configured interval.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
