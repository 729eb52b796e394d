package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
)

func TestQueryKind(t *testing.T) {
	tests := map[string]string{
		"SELECT id FROM dashboards":        "SELECT",
		"\n\tinsert into blocks values ($1)": "INSERT",
		"UPDATE dashboards SET name = $1":  "UPDATE",
		"delete from blocks":               "DELETE",
		"SELECT pg_advisory_lock($1)":      "SELECT",
		"CREATE TABLE x ()":                "OTHER",
		"":                                 "unknown",
	}

	for sql, want := range tests {
		assert.Equal(t, want, queryKind(sql), sql)
	}
}

func TestQueryTracer_RecordsErrors(t *testing.T) {
	m := metrics.NewDBMetrics(prometheus.NewRegistry())
	tracer := NewQueryTracer(m)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "DELETE FROM blocks"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	assert.InDelta(t, 1, testutil.ToFloat64(m.QueryErrors.WithLabelValues("DELETE")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("SELECT")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.QueryDuration))
}

func TestQueryTracer_EndWithoutStartIsIgnored(t *testing.T) {
	m := metrics.NewDBMetrics(prometheus.NewRegistry())
	tracer := NewQueryTracer(m)

	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})

	assert.Equal(t, 0, testutil.CollectAndCount(m.QueryDuration))
}
