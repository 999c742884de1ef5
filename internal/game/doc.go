// Package game implements a single no-limit hold'em table: seating, blinds,
// street dealing, betting with all-in caps, and tiered showdown settlement.
//
// A Table is not safe for concurrent use. The session package serialises
// access to it behind a mutex.
package game
