// Package lease stores slot leases in a TTL key-value store and reconciles
// client-held leases against it.
//
// The store is the only authority on occupancy: a lease exists exactly while its
// key exists, and key expiry is how a lease ends.
package lease
