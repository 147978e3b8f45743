package db

import (
	"fmt"
	"strings"
)

// filter accumulates positional arguments and WHERE clauses. A "?" in a
// clause is replaced by the placeholder of the argument added with it.
type filter struct {
	args  []any
	where []string
}

func (f *filter) arg(value any) string {
	f.args = append(f.args, value)
	return fmt.Sprintf("$%d", len(f.args))
}

func (f *filter) add(clause string, value any) {
	placeholder := f.arg(value)
	f.where = append(f.where, strings.ReplaceAll(clause, "?", placeholder))
}

func (f *filter) addRaw(clause string) {
	f.where = append(f.where, clause)
}

func (f *filter) clause() string {
	if len(f.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.where, " AND ")
}

func (f *filter) page(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	out := " LIMIT " + f.arg(limit)
	if offset > 0 {
		out += " OFFSET " + f.arg(offset)
	}
	return out
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(search)
	return "%" + escaped + "%"
}
