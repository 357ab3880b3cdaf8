// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryOptions selects metrics from the index. Query runs a full-text
// search over evidence snippets; the remaining fields are structured
// filters. All are optional.
type QueryOptions struct {
	Query      string
	Code       string
	ReportID   string
	Year       string
	MaxResults int
}

// QueryResult is one indexed metric joined with its report metadata.
type QueryResult struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Item           string `json:"item,omitempty"`
	Value          string `json:"value,omitempty"`
	Unit           string `json:"unit,omitempty"`
	Year           string `json:"year,omitempty"`
	Page           int    `json:"page,omitempty"`
	Snippet        string `json:"snippet,omitempty"`
	Scope          string `json:"scope,omitempty"`
	Flag           string `json:"flag,omitempty"`
	Classification string `json:"classification,omitempty"`
	ReportID       string `json:"report_id"`
	CompanyName    string `json:"company_name,omitempty"`
	ReportTitle    string `json:"report_title,omitempty"`
}

// Query retrieves metrics matching the options. With a full-text query,
// results are ordered by FTS rank; otherwise by report, code, and year.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT m.id, m.code, m.item, m.value, m.unit, m.year, m.page,
			m.snippet, m.scope, m.flag, m.classification,
			m.report_id, r.company_name, r.report_title
		FROM metrics m
		JOIN reports r ON r.id = m.report_id`)

	if opts.Query != "" {
		query.WriteString(`
		JOIN metrics_fts f ON f.rowid = m.rowid
		WHERE metrics_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		query.WriteString(`
		WHERE 1=1`)
	}

	if opts.Code != "" {
		query.WriteString(` AND m.code = ?`)
		args = append(args, opts.Code)
	}
	if opts.ReportID != "" {
		query.WriteString(` AND m.report_id = ?`)
		args = append(args, opts.ReportID)
	}
	if opts.Year != "" {
		query.WriteString(` AND m.year = ?`)
		args = append(args, opts.Year)
	}

	if opts.Query != "" {
		query.WriteString(` ORDER BY rank`)
	} else {
		query.WriteString(` ORDER BY m.report_id, m.code, m.year`)
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}
	query.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var res QueryResult
		var item, value, unit, year, snippet, scope, flag, class sql.NullString
		var company, title sql.NullString

		err := rows.Scan(&res.ID, &res.Code, &item, &value, &unit, &year,
			&res.Page, &snippet, &scope, &flag, &class,
			&res.ReportID, &company, &title)
		if err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}

		res.Item = item.String
		res.Value = value.String
		res.Unit = unit.String
		res.Year = year.String
		res.Snippet = snippet.String
		res.Scope = scope.String
		res.Flag = flag.String
		res.Classification = class.String
		res.CompanyName = company.String
		res.ReportTitle = title.String

		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}

	return results, nil
}
