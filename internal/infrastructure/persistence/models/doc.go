// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: id and timestamp columns
//   - inventory.go: inventory_records, order_reservations, stock_change_logs
package models
