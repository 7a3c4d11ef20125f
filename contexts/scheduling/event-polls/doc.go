// Package eventpolls implements availability polls for community events.
//
// Members propose time slots, toggle their availability per slot and watch
// results change live over websocket. Recurring polls expand an RRULE into
// concrete slots and can have their future series rewritten in place. A
// deadline scheduler announces one-shot winners and per-instance roll calls
// to the poll's chat channel exactly once.
package eventpolls
