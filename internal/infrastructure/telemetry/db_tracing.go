package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing installs otelgorm so every query becomes a child span of
// the calling operation. Query variables are never attached.
//
// Misses and compare-and-swap losses are expected outcomes for the directory,
// so spans for gorm.ErrRecordNotFound and gorm.ErrDuplicatedKey are reset to
// Unset status.
func RegisterDBTracing(db *gorm.DB, dbSystem string, logger *zap.Logger) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	cb := db.Callback()
	for _, reg := range []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"housing:span_outcome_create", cb.Create().After("gorm:create").Register},
		{"housing:span_outcome_query", cb.Query().After("gorm:query").Register},
		{"housing:span_outcome_update", cb.Update().After("gorm:update").Register},
		{"housing:span_outcome_row", cb.Row().After("gorm:row").Register},
	} {
		if err := reg.register(reg.name, annotateSpan); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}

func annotateSpan(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if errors.Is(db.Error, gorm.ErrRecordNotFound) || errors.Is(db.Error, gorm.ErrDuplicatedKey) {
		span.SetStatus(codes.Unset, "")
	}
}
