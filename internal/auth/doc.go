// Package auth drives a TDLib-style client session through its login handshake.
//
// A [Coordinator] receives authorization state updates one at a time and answers each
// with at most one request: TDLib parameters, the database key, the phone number, the
// login code, the 2FA password or the registration names. Every request carries a
// correlated handler bound to the epoch that was current when it was sent. The epoch
// advances on every state update, so a response that arrives after a newer state is
// dropped instead of acting on a step the engine has already left.
//
// # Failures
//
// An Error response to a current request is printed and the same state is handled
// again, which re-prompts the user for interactive steps. Retries are paced by a rate
// limiter but never capped.
//
// # Concurrency
//
// HandleState and the correlated handlers must be called from a single goroutine.
// Authorized, NeedsRestart and Epoch are safe to read from any goroutine.
package auth
