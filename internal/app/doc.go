// Package app is the application service layer.
//
// It validates purchases and quotes against the base layout and pricing rules,
// hands migrations to the reconciler and collapses concurrent world view reads.
// HTTP handlers and the admin CLI talk to the Service, never to the store.
package app
