package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

// PostgresSink persists sample results for offline aggregation. One row per
// sample call.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) WriteBatch(results []*domain.Result) error {
	if len(results) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.tableName)
	b.WriteString(" (label, started_at, ended_at, success, response_code, response_message, bytes, sample_count, sampler_data) VALUES ")

	args := make([]any, 0, len(results)*9)
	for i, r := range results {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5,
			len(args)+6, len(args)+7, len(args)+8, len(args)+9))

		size := r.Bytes
		if size == 0 {
			size = len(r.ResponseData)
		}

		args = append(args,
			r.Label,
			r.Start,
			r.End,
			r.Success,
			r.ResponseCode,
			r.ResponseMessage,
			size,
			r.SampleCount,
			r.SamplerData,
		)
	}

	_, err := s.db.Exec(b.String(), args...)
	return err
}

var _ ports.ResultSink = (*PostgresSink)(nil)
