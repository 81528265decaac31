package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
)

const defaultPerPage = 10

// Search translates params into FT.SEARCH. FilterBy is passed through as a RediSearch expression.
func (s *Store) Search(ctx context.Context, name string, p document.SearchParams) (document.SearchResult, error) {
	page := max(p.Page, 1)
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	args := []string{s.indexName(name), buildQuery(p)}
	if field, dir, ok := parseSortBy(p.SortBy); ok {
		args = append(args, "SORTBY", field, dir)
	}
	args = append(args,
		"LIMIT", strconv.Itoa((page-1)*perPage), strconv.Itoa(perPage),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return document.SearchResult{}, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: collection %s", db.ErrNotFound, name)}
		}
		return document.SearchResult{}, opError(db.OpSearch, err)
	}

	res, err := parseSearchResult(raw)
	if err != nil {
		return document.SearchResult{}, &db.Error{Op: db.OpSearch, Err: err}
	}
	res.Page = page
	return res, nil
}

func buildQuery(p document.SearchParams) string {
	var parts []string
	if q := strings.TrimSpace(p.Q); q != "" && q != "*" {
		text := "(" + escapeQuery(q) + ")"
		if p.QueryBy != "" {
			fields := strings.Split(p.QueryBy, ",")
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			text = "@" + strings.Join(fields, "|") + ":" + text
		}
		parts = append(parts, text)
	}
	if p.FilterBy != "" {
		parts = append(parts, p.FilterBy)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// parseSortBy reads "field:asc" or "field:desc".
func parseSortBy(sortBy string) (string, string, bool) {
	if sortBy == "" {
		return "", "", false
	}
	field, dir, _ := strings.Cut(strings.Split(sortBy, ",")[0], ":")
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir != "DESC" {
		dir = "ASC"
	}
	return strings.TrimSpace(field), dir, true
}

// parseSearchResult decodes [total, key1, [ "$", json ], key2, ...].
func parseSearchResult(raw []rueidis.RedisMessage) (document.SearchResult, error) {
	if len(raw) == 0 {
		return document.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return document.SearchResult{}, fmt.Errorf("parse total: %w", err)
	}
	res := document.SearchResult{Found: int(total)}

	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(fields)
		payload, ok := pairs["$"]
		if !ok {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			continue
		}
		res.Hits = append(res.Hits, document.Hit{Document: doc})
	}
	return res, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
