package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// TeamTables lists the catalogue tables exposed to generated SQL, in
// dependency order.
var TeamTables = []string{"departments", "products", "team_members", "features", "incidents"}

// QueryResult is the tabular output of a read query
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// Query runs a read-only statement and returns at most maxRows rows.
// maxRows <= 0 means no limit.
func (s *Store) Query(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	rows, err := s.ro.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	res := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return res, nil
}

// DescribeSchema renders the catalogue tables as one "table(col TYPE, ...)"
// line each, for use in generation prompts.
func (s *Store) DescribeSchema(ctx context.Context) (string, error) {
	var b strings.Builder
	for _, table := range TeamTables {
		rows, err := s.db.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid", table)
		if err != nil {
			return "", fmt.Errorf("describing %s: %w", table, err)
		}

		var cols []string
		for rows.Next() {
			var name, typ string
			var pk int
			if err := rows.Scan(&name, &typ, &pk); err != nil {
				rows.Close()
				return "", fmt.Errorf("scanning %s columns: %w", table, err)
			}
			col := name + " " + typ
			if pk > 0 {
				col += " PRIMARY KEY"
			}
			cols = append(cols, col)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return "", fmt.Errorf("iterating %s columns: %w", table, err)
		}

		fmt.Fprintf(&b, "%s(%s)\n", table, strings.Join(cols, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Seed loads the sample catalogue when the database holds no departments.
// It reports whether any rows were written.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM departments").Scan(&n); err != nil {
		return false, fmt.Errorf("counting departments: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range seedStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("seeding: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed: %w", err)
	}
	return true, nil
}

var seedStatements = []string{
	`INSERT INTO departments (id, name, description, head_name) VALUES
		(1, 'Application Security', 'Static and dynamic analysis products', 'Irina Volkova'),
		(2, 'Network Security', 'Perimeter and traffic inspection products', 'Pavel Orlov'),
		(3, 'Threat Intelligence', 'Research, detection content and feeds', 'Anna Sokolova'),
		(4, 'Platform', 'Shared infrastructure, CI and release engineering', 'Dmitry Kuznetsov')`,

	`INSERT INTO products (id, name, short_name, description, department_id, status, version, release_date) VALUES
		(1, 'Application Inspector', 'AI', 'Source code analyzer that finds vulnerabilities and proves them with exploits', 1, 'active', '4.6', '2024-03-12'),
		(2, 'Web Application Firewall', 'WAF', 'Inline protection for web applications and APIs', 2, 'active', '4.3', '2023-11-20'),
		(3, 'Network Traffic Analyzer', 'NTA', 'Detects attacks in east-west and north-south traffic', 2, 'active', '12.1', '2024-05-30'),
		(4, 'Threat Feed', 'TF', 'Curated indicators of compromise for SIEM integration', 3, 'beta', '0.9', NULL)`,

	`INSERT INTO team_members (id, first_name, last_name, email, position, department_id, skills, experience_years, join_date, is_active) VALUES
		(1, 'Irina', 'Volkova', 'i.volkova@example.com', 'Head of Department', 1, 'management,appsec', 15, '2015-02-01', 1),
		(2, 'Alexey', 'Smirnov', 'a.smirnov@example.com', 'Senior Developer', 1, 'go,static analysis,compilers', 9, '2018-06-15', 1),
		(3, 'Maria', 'Ivanova', 'm.ivanova@example.com', 'Developer', 1, 'python,dataflow', 4, '2021-09-01', 1),
		(4, 'Sergey', 'Popov', 's.popov@example.com', 'QA Engineer', 1, 'testing,automation', 6, '2019-04-10', 1),
		(5, 'Pavel', 'Orlov', 'p.orlov@example.com', 'Head of Department', 2, 'management,networking', 14, '2016-01-20', 1),
		(6, 'Elena', 'Fedorova', 'e.fedorova@example.com', 'Senior Developer', 2, 'c++,dpdk,networking', 11, '2017-03-03', 1),
		(7, 'Nikita', 'Morozov', 'n.morozov@example.com', 'Developer', 2, 'go,kubernetes', 3, '2022-07-11', 1),
		(8, 'Anna', 'Sokolova', 'a.sokolova@example.com', 'Head of Department', 3, 'malware analysis,research', 12, '2016-10-05', 1),
		(9, 'Igor', 'Lebedev', 'i.lebedev@example.com', 'Security Researcher', 3, 'reverse engineering,yara', 7, '2019-12-02', 1),
		(10, 'Olga', 'Kozlova', 'o.kozlova@example.com', 'Developer', 3, 'python,elasticsearch', 5, '2020-08-17', 1),
		(11, 'Dmitry', 'Kuznetsov', 'd.kuznetsov@example.com', 'Head of Department', 4, 'management,devops', 13, '2015-11-09', 1),
		(12, 'Viktor', 'Novikov', 'v.novikov@example.com', 'DevOps Engineer', 4, 'terraform,ci,linux', 8, '2018-02-26', 1),
		(13, 'Yulia', 'Pavlova', 'y.pavlova@example.com', 'Developer', 4, 'go,redis', 2, '2023-04-03', 0)`,

	`INSERT INTO features (id, title, description, product_id, status, priority, assigned_to, estimated_hours, completed_hours, start_date, target_date) VALUES
		(1, 'Kotlin support', 'Taint analysis for Kotlin sources', 1, 'in_development', 'high', 2, 320, 140, '2024-06-01', '2024-12-15'),
		(2, 'SARIF export', 'Export findings in SARIF 2.1', 1, 'done', 'medium', 3, 60, 60, '2024-02-01', '2024-03-01'),
		(3, 'GraphQL inspection', 'Schema-aware GraphQL request filtering', 2, 'in_development', 'high', 7, 200, 45, '2024-07-15', '2025-01-31'),
		(4, 'TLS 1.3 fingerprinting', 'JA4 fingerprints for encrypted sessions', 3, 'planned', 'medium', 6, 150, 0, NULL, '2025-03-01'),
		(5, 'STIX 2.1 feed', 'Publish indicators as STIX bundles', 4, 'in_development', 'low', 10, 90, 30, '2024-08-01', '2024-11-30')`,

	`INSERT INTO incidents (id, title, description, product_id, severity, status, reported_by, assigned_to, reported_date, resolved_date) VALUES
		(1, 'False positives on Spring controllers', 'Taint source misdetected for @RequestBody', 1, 'medium', 'resolved', 4, 2, '2024-04-02', '2024-04-09'),
		(2, 'Rule update breaks upload endpoints', 'Multipart bodies over 10MB rejected', 2, 'high', 'open', 7, 7, '2024-09-14', NULL),
		(3, 'Memory leak in flow reassembly', 'RSS grows under sustained SYN floods', 3, 'critical', 'in_progress', 6, 6, '2024-09-20', NULL),
		(4, 'Duplicate indicators in feed', 'Same hash published under two families', 4, 'low', 'open', 9, 10, '2024-10-01', NULL)`,
}
