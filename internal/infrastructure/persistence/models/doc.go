// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - barcode.go: alias rows
// - inventory.go: shelves, central stock counters and shelf rows (raf_urun)
// - order.go: one model shared by the seven status tables
// - catalog.go: product metadata and marketplace listings
package models
