// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// of ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel shared by every table
//   - location.go: counties, municipalities, settlements, addresses
//   - property.go: buildings, accountant links, flats
//   - profile.go: identity profiles
//   - occupancy.go: occupancy requests and the approval journal
package models
