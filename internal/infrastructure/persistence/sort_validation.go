package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Column whitelists double as the set of fields a shared.Filter may
// constrain and the set of fields it may order by.

// CommonFields contains columns present on every table
var CommonFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// CountyFields contains queryable county columns
var CountyFields = withCommon("name")

// MunicipalityFields contains queryable municipality columns
var MunicipalityFields = withCommon("county_id", "name")

// SettlementFields contains queryable settlement columns
var SettlementFields = withCommon("municipality_id", "name", "type")

// AddressFields contains queryable address columns
var AddressFields = withCommon("settlement_id", "street", "status", "created_by")

// BuildingFields contains queryable building columns
var BuildingFields = withCommon("name", "address_id", "manager_id")

// FlatFields contains queryable flat columns
var FlatFields = withCommon("building_id", "unit_number", "tenant_id")

// ProfileFields contains queryable profile columns
var ProfileFields = withCommon("full_name", "email", "role")

// RequestFields contains queryable occupancy request columns
var RequestFields = withCommon("flat_id", "requester_id", "status", "reviewed_by", "reviewed_at")

func withCommon(fields ...string) map[string]bool {
	out := make(map[string]bool, len(CommonFields)+len(fields))
	for k := range CommonFields {
		out[k] = true
	}
	for _, f := range fields {
		out[f] = true
	}
	return out
}
