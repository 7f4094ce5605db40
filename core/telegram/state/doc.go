// Package state is the per-user session registry for multi-step conversations.
//
// A user may hold at most one session per scenario. Start and End manage a single
// scenario; Claim atomically starts one scenario while ending every other, which is
// how a new conversation takes over a user from an abandoned one.
package state
