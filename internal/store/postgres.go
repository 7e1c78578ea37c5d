package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"nucleo/internal/entity"
	"nucleo/pkg/platform/sentinel"
)

// Postgres persists entity documents in a single JSONB table keyed by
// (entity_type, id). Predicates compile to parameterized SQL over the
// document, so the access layer's composed filters run inside the database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store over an open database
// handle (pgx stdlib driver).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

const entitiesSchema = `
CREATE TABLE IF NOT EXISTS entities (
	seq          BIGSERIAL,
	entity_type  TEXT  NOT NULL,
	id           TEXT  NOT NULL,
	doc          JSONB NOT NULL,
	PRIMARY KEY (entity_type, id)
)`

// Migrate creates the entities table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, entitiesSchema); err != nil {
		return fmt.Errorf("migrate entities table: %w", err)
	}
	return nil
}

func (p *Postgres) FindUnique(ctx context.Context, typ entity.Type, id string) (Record, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT doc FROM entities WHERE entity_type = $1 AND id = $2`, string(typ), id)
	return scanDoc(row)
}

func (p *Postgres) FindFirst(ctx context.Context, typ entity.Type, q Query) (Record, error) {
	q.Limit = 1
	q.Offset = 0
	recs, err := p.FindMany(ctx, typ, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return recs[0], nil
}

func (p *Postgres) FindMany(ctx context.Context, typ entity.Type, q Query) ([]Record, error) {
	b := newSQLBuilder(string(typ))
	query := fmt.Sprintf(`SELECT doc FROM entities WHERE entity_type = $1 AND %s %s`,
		b.compile(q.Where), b.ordering(q.OrderBy))
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := p.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find many %s: %w", typ, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", typ, err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", typ, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Count(ctx context.Context, typ entity.Type, where Where) (int64, error) {
	b := newSQLBuilder(string(typ))
	query := fmt.Sprintf(`SELECT COUNT(*) FROM entities WHERE entity_type = $1 AND %s`, b.compile(where))
	var n int64
	if err := p.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", typ, err)
	}
	return n, nil
}

func (p *Postgres) Aggregate(ctx context.Context, typ entity.Type, agg Aggregation) (float64, error) {
	fn, ok := map[AggregateFunc]string{
		AggSum: "SUM", AggAvg: "AVG", AggMin: "MIN", AggMax: "MAX",
	}[agg.Func]
	if !ok {
		fn = "SUM"
	}
	b := newSQLBuilder(string(typ))
	field := b.bind(agg.Field)
	query := fmt.Sprintf(
		`SELECT %s((doc->>%s)::numeric) FROM entities WHERE entity_type = $1 AND jsonb_typeof(doc->%s) = 'number' AND %s`,
		fn, field, field, b.compile(agg.Where))
	var v sql.NullFloat64
	if err := p.db.QueryRowContext(ctx, query, b.args...).Scan(&v); err != nil {
		return 0, fmt.Errorf("aggregate %s over %s: %w", fn, typ, err)
	}
	return v.Float64, nil
}

func (p *Postgres) GroupBy(ctx context.Context, typ entity.Type, g Grouping) ([]Record, error) {
	b := newSQLBuilder(string(typ))
	query := fmt.Sprintf(
		`SELECT doc->>%s, COUNT(*) FROM entities WHERE entity_type = $1 AND %s GROUP BY 1 ORDER BY 1`,
		b.bind(g.By), b.compile(g.Where))
	rows, err := p.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", typ, g.By, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			key   sql.NullString
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		rec := Record{"count": count}
		if key.Valid {
			rec["key"] = key.String
		} else {
			rec["key"] = nil
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Create(ctx context.Context, typ entity.Type, data Record) (Record, error) {
	rec := data.Clone()
	if rec == nil {
		rec = Record{}
	}
	if rec.ID() == "" {
		rec[entity.FieldID] = uuid.NewString()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", typ, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO entities (entity_type, id, doc) VALUES ($1, $2, $3::jsonb)`,
		string(typ), rec.ID(), string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("insert %s: %w", typ, err)
	}
	return rec, nil
}

func (p *Postgres) CreateMany(ctx context.Context, typ entity.Type, data []Record) (int64, error) {
	for _, rec := range data {
		if _, err := p.Create(ctx, typ, rec); err != nil {
			return 0, err
		}
	}
	return int64(len(data)), nil
}

func (p *Postgres) Update(ctx context.Context, typ entity.Type, where Where, data Record) (Record, error) {
	patch, err := encodePatch(typ, data)
	if err != nil {
		return nil, err
	}
	b := newSQLBuilder(string(typ))
	patchArg := b.bind(patch)
	query := fmt.Sprintf(`
		UPDATE entities SET doc = doc || %s::jsonb
		WHERE entity_type = $1 AND id = (
			SELECT id FROM entities WHERE entity_type = $1 AND %s ORDER BY seq LIMIT 1
		)
		RETURNING doc`, patchArg, b.compile(where))
	return scanDoc(p.db.QueryRowContext(ctx, query, b.args...))
}

func (p *Postgres) UpdateMany(ctx context.Context, typ entity.Type, where Where, data Record) (int64, error) {
	patch, err := encodePatch(typ, data)
	if err != nil {
		return 0, err
	}
	b := newSQLBuilder(string(typ))
	patchArg := b.bind(patch)
	query := fmt.Sprintf(`UPDATE entities SET doc = doc || %s::jsonb WHERE entity_type = $1 AND %s`,
		patchArg, b.compile(where))
	res, err := p.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("update many %s: %w", typ, err)
	}
	return res.RowsAffected()
}

func (p *Postgres) Delete(ctx context.Context, typ entity.Type, where Where) (Record, error) {
	b := newSQLBuilder(string(typ))
	query := fmt.Sprintf(`
		DELETE FROM entities
		WHERE entity_type = $1 AND id = (
			SELECT id FROM entities WHERE entity_type = $1 AND %s ORDER BY seq LIMIT 1
		)
		RETURNING doc`, b.compile(where))
	return scanDoc(p.db.QueryRowContext(ctx, query, b.args...))
}

func (p *Postgres) DeleteMany(ctx context.Context, typ entity.Type, where Where) (int64, error) {
	b := newSQLBuilder(string(typ))
	query := fmt.Sprintf(`DELETE FROM entities WHERE entity_type = $1 AND %s`, b.compile(where))
	res, err := p.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", typ, err)
	}
	return res.RowsAffected()
}

func (p *Postgres) Upsert(ctx context.Context, typ entity.Type, where Where, create, update Record) (Record, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert %s: %w", typ, err)
	}
	defer func() { _ = tx.Rollback() }()

	b := newSQLBuilder(string(typ))
	selectQuery := fmt.Sprintf(
		`SELECT id FROM entities WHERE entity_type = $1 AND %s ORDER BY seq LIMIT 1 FOR UPDATE`,
		b.compile(where))

	var matchedID string
	err = tx.QueryRowContext(ctx, selectQuery, b.args...).Scan(&matchedID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec := create.Clone()
		if rec == nil {
			rec = Record{}
		}
		if rec.ID() == "" {
			rec[entity.FieldID] = uuid.NewString()
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode %s document: %w", typ, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (entity_type, id, doc) VALUES ($1, $2, $3::jsonb)`,
			string(typ), rec.ID(), string(raw)); err != nil {
			if isUniqueViolation(err) {
				return nil, sentinel.ErrConflict
			}
			return nil, fmt.Errorf("insert %s: %w", typ, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit upsert %s: %w", typ, err)
		}
		return rec, nil
	case err != nil:
		return nil, fmt.Errorf("match for upsert %s: %w", typ, err)
	}

	patch, err := encodePatch(typ, update)
	if err != nil {
		return nil, err
	}
	rec, err := scanDoc(tx.QueryRowContext(ctx,
		`UPDATE entities SET doc = doc || $3::jsonb WHERE entity_type = $1 AND id = $2 RETURNING doc`,
		string(typ), matchedID, patch))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert %s: %w", typ, err)
	}
	return rec, nil
}

func encodePatch(typ entity.Type, data Record) (string, error) {
	patch := data.Clone()
	if patch == nil {
		patch = Record{}
	}
	delete(patch, entity.FieldID)
	raw, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("encode %s patch: %w", typ, err)
	}
	return string(raw), nil
}

func scanDoc(row *sql.Row) (Record, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// sqlBuilder compiles a Where tree into a SQL fragment over the doc column.
// Field names are bound as parameters (doc->>$n), never interpolated.
type sqlBuilder struct {
	args []any
}

func newSQLBuilder(entityType string) *sqlBuilder {
	return &sqlBuilder{args: []any{entityType}}
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// compile returns the SQL for a predicate tree, "TRUE" when unconstrained.
func (b *sqlBuilder) compile(w Where) string {
	var parts []string
	for _, c := range w.Conds {
		parts = append(parts, b.cond(c))
	}
	for _, sub := range w.And {
		parts = append(parts, b.compile(sub))
	}
	if len(w.Or) > 0 {
		var ors []string
		for _, sub := range w.Or {
			ors = append(ors, b.compile(sub))
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	if len(parts) == 0 {
		return "TRUE"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (b *sqlBuilder) cond(c Cond) string {
	field := b.bind(c.Field)
	text := fmt.Sprintf("doc->>%s", field)

	switch c.Op {
	case OpEq:
		if c.Value == nil {
			return text + " IS NULL"
		}
		return b.typedCompare(field, text, "=", c.Value)
	case OpNe:
		if c.Value == nil {
			return text + " IS NOT NULL"
		}
		return b.typedCompare(field, text, "IS DISTINCT FROM", c.Value)
	case OpIn:
		return b.inCond(field, text, c.Value)
	case OpContains:
		sub, _ := c.Value.(string)
		return fmt.Sprintf("%s LIKE %s", text, b.bind("%"+escapeLike(sub)+"%"))
	case OpLt:
		return b.typedCompare(field, text, "<", c.Value)
	case OpLte:
		return b.typedCompare(field, text, "<=", c.Value)
	case OpGt:
		return b.typedCompare(field, text, ">", c.Value)
	case OpGte:
		return b.typedCompare(field, text, ">=", c.Value)
	}
	return "FALSE"
}

func (b *sqlBuilder) typedCompare(field, text, op string, value any) string {
	switch v := value.(type) {
	case bool:
		return fmt.Sprintf("(doc->%s)::boolean %s %s", field, op, b.bind(v))
	case time.Time:
		return fmt.Sprintf("(%s)::timestamptz %s %s", text, op, b.bind(v))
	default:
		if f, ok := toFloat(value); ok {
			return fmt.Sprintf("(%s)::numeric %s %s", text, op, b.bind(f))
		}
		return fmt.Sprintf("%s %s %s", text, op, b.bind(fmt.Sprintf("%v", value)))
	}
}

func (b *sqlBuilder) inCond(field, text string, values any) string {
	switch vs := values.(type) {
	case []string:
		return fmt.Sprintf("%s = ANY(%s)", text, b.bind(vs))
	case []any:
		var parts []string
		for _, v := range vs {
			parts = append(parts, b.typedCompare(field, text, "=", v))
		}
		if len(parts) == 0 {
			return "FALSE"
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case []float64:
		var parts []string
		for _, v := range vs {
			parts = append(parts, fmt.Sprintf("(%s)::numeric = %s", text, b.bind(v)))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	default:
		return "FALSE"
	}
}

// ordering compiles the ORDER BY clause, defaulting to insertion order so
// postgres and the in-memory store page identically.
func (b *sqlBuilder) ordering(orders []Order) string {
	if len(orders) == 0 {
		return "ORDER BY seq"
	}
	var parts []string
	for _, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("doc->>%s %s", b.bind(o.Field), dir))
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
