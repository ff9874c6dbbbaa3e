package service

import (
	"database/sql"
	"path"
	"sort"
	"strings"
	"time"

	"metroads/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, domain.Validationf("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func toNullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func toNullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// Upload extension whitelists. Contract documents accept office formats and
// scans; images accept photos only.
var (
	documentExtensions = map[string]bool{
		".pdf": true, ".jpg": true, ".jpeg": true, ".png": true,
		".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	}
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true,
	}
)

func checkExtension(filename string, allowed map[string]bool) error {
	ext := strings.ToLower(path.Ext(filename))
	if allowed[ext] {
		return nil
	}
	names := make([]string, 0, len(allowed))
	for e := range allowed {
		names = append(names, strings.TrimPrefix(e, "."))
	}
	sort.Strings(names)
	return domain.Validationf("unsupported file extension %q, allowed: %s", ext, strings.Join(names, ", "))
}
