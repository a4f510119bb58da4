package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	defaultTableName = "casbin_rule"
	fieldCount       = 6

	insertSQL = "insert into %[1]s (ptype, %[2]s) values ($1, %[3]s) on conflict (ptype, %[2]s) do nothing"
	selectSQL = "select ptype, %[2]s from %[1]s"
	truncSQL  = "truncate table %[1]s restart identity"
)

var columns = strings.Join(lo.Times(fieldCount, func(i int) string { return "v" + strconv.Itoa(i) }), ", ")

// Commander defines the pgx operations required by the adapter store.
type Commander interface {
	Ping(context.Context) error
	Begin(context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type store struct {
	db        Commander
	tableName string
}

func newStore(db Commander) *store {
	return &store{db: db, tableName: defaultTableName}
}

func (s *store) setTableName(tableName string) {
	s.tableName = lo.SnakeCase(tableName)
}

func (s *store) insertQuery() string {
	placeholders := strings.Join(lo.Times(fieldCount, func(i int) string { return "$" + strconv.Itoa(i+2) }), ", ")
	return fmt.Sprintf(insertSQL, s.tableName, columns, placeholders)
}

func (s *store) insertRow(ctx context.Context, ptype string, rule []string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	normalized, err := normalizeRule(rule)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, s.insertQuery(), lo.ToAnySlice(genRule(ptype, normalized))...); err != nil {
		return errors.Join(ErrWrite, err)
	}
	return nil
}

// selectWhere returns rows of ptype whose columns starting at startIdx equal
// args. Empty args are wildcards; an empty ptype selects every row.
func (s *store) selectWhere(ctx context.Context, ptype string, startIdx int, args ...string) ([][]string, error) {
	query := fmt.Sprintf(selectSQL, s.tableName, columns)
	var params []any
	if ptype != "" {
		where, whereParams, err := whereClause(ptype, startIdx, args)
		if err != nil {
			return nil, err
		}
		query += " where " + where
		params = whereParams
	}

	rows, err := s.db.Query(ctx, query+" order by id", params...)
	if err != nil {
		return nil, errors.Join(ErrSelect, err)
	}
	defer rows.Close()

	var lines [][]string
	for rows.Next() {
		line := make([]string, fieldCount+1)
		dest := lo.Map(line, func(_ string, i int) any { return &line[i] })
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Join(ErrSelect, err)
		}
		lines = append(lines, trimTrailingEmpty(line))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSelect, err)
	}
	return lines, nil
}

func (s *store) deleteWhere(ctx context.Context, ptype string, startIdx int, args ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	where, params, err := whereClause(ptype, startIdx, args)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, fmt.Sprintf("delete from %s where ", s.tableName)+where, params...); err != nil {
		return errors.Join(ErrWrite, err)
	}
	return nil
}

func (s *store) replaceAll(ctx context.Context, rules [][]string) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf(truncSQL, s.tableName)); err != nil {
		return errors.Join(ErrWrite, err)
	}

	batch := &pgx.Batch{}
	for _, rule := range rules {
		row, nerr := normalizeRuleRow(rule)
		if nerr != nil {
			return nerr
		}
		batch.Queue(s.insertQuery(), lo.ToAnySlice(row)...)
	}
	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Join(ErrWrite, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Join(ErrWrite, err)
	}
	return nil
}

func whereClause(ptype string, startIdx int, args []string) (string, []any, error) {
	if startIdx < 0 || startIdx+len(args) > fieldCount {
		return "", nil, fmt.Errorf("%w: %d values from index %d", ErrRuleTooLong, len(args), startIdx)
	}

	conds := []string{"ptype = $1"}
	params := []any{ptype}
	for i, arg := range args {
		if arg == "" {
			continue
		}
		params = append(params, arg)
		conds = append(conds, fmt.Sprintf("v%d = $%d", startIdx+i, len(params)))
	}
	return strings.Join(conds, " and "), params, nil
}

func genRule(ptype string, rule []string) []string {
	result := make([]string, 1+len(rule))
	result[0] = ptype
	copy(result[1:], rule)
	return result
}

func normalizeRule(rule []string) ([]string, error) {
	if len(rule) > fieldCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(rule), fieldCount)
	}
	normalized := make([]string, fieldCount)
	copy(normalized, rule)
	return normalized, nil
}

func normalizeRuleRow(rule []string) ([]string, error) {
	if len(rule) == 0 {
		return nil, ErrRuleEmpty
	}
	normalized, err := normalizeRule(rule[1:])
	if err != nil {
		return nil, err
	}
	return genRule(rule[0], normalized), nil
}

func trimTrailingEmpty(rule []string) []string {
	last := len(rule) - 1
	for last >= 0 && rule[last] == "" {
		last--
	}
	return rule[:last+1]
}
