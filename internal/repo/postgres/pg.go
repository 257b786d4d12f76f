package postgres

import (
	"context"
	"errors"

	"github.com/Emmanuel246/natours/internal/query"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	return false
}

// listShaped executes a query plan against a resource schema and returns the
// projected documents plus the unpaginated match count. Columns come back
// aliased to API field names, so the row maps are response-ready.
func listShaped(ctx context.Context, pool *pgxpool.Pool, s *query.Schema, p query.Plan) ([]map[string]any, int, error) {
	sql, args := query.BuildSelect(s, p)

	rows, err := pool.Query(ctx, sql, args...)

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	fields := rows.FieldDescriptions()

	docs := make([]map[string]any, 0, p.Limit)
	total := 0

	for rows.Next() {
		values, err := rows.Values()

		if err != nil {
			return nil, 0, err
		}

		doc := make(map[string]any, len(fields)-1)

		for i, fd := range fields {
			if fd.Name == query.TotalColumn {
				switch n := values[i].(type) {
				case int64:
					total = int(n)
				case int32:
					total = int(n)
				}
				continue
			}
			doc[fd.Name] = values[i]
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}
