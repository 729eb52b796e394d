package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
)

// QueryTracer records per-statement-kind durations and errors.
type QueryTracer struct {
	metrics *metrics.DBMetrics
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(m *metrics.DBMetrics) *QueryTracer {
	return &QueryTracer{metrics: m}
}

type traceKey struct{}

type traceData struct {
	start time.Time
	query string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceData{start: time.Now(), query: queryKind(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(traceData)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(td.query).Observe(time.Since(td.start).Seconds())
	if data.Err != nil && data.Err != pgx.ErrNoRows {
		t.metrics.QueryErrors.WithLabelValues(td.query).Inc()
	}
}

// queryKind reduces a statement to its leading keyword to keep label
// cardinality bounded.
func queryKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch kind := strings.ToUpper(fields[0]); kind {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return kind
	default:
		return "OTHER"
	}
}
