// Package models contains the GORM persistence models of the stock ledger.
// Domain entities carry no ORM tags; each model maps to one table and
// converts to and from its domain type.
//
// - base.go: shared columns (BaseModel, TenantAggregateModel, DocumentHeaderModel)
// - catalog.go: units of measure and products
// - ledger.go: stock movements
// - document.go: stock document headers and their items
package models
