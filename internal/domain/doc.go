// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (slot.go, store.go, errors.go) hold shared types and the
// storage contract. Apart from decoding client candidates there is no
// implementation code here.
package domain
