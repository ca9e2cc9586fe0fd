// Package entities holds the persisted records of the checkout desk:
// catalog books, accounts, requests, loans, fines, settings and audit events.
//
// The structs double as gorm models and as the JSON document shape used by
// the flat-file store, so field tags cover both.
package entities
