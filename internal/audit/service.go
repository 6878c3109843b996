package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Store abstracts the repository for the service.
type Store interface {
	Timeline(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
	TimelineAll(ctx context.Context, f Filters) ([]Entry, error)
}

// Result pairs one page of the trail with its paging metadata.
type Result struct {
	Rows   []Entry
	Paging Paging
}

// Service coordinates audit trail reads.
type Service struct {
	repo Store
}

// NewService constructs a Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page. It reads one row past the page size to decide
// whether a next page exists.
func (s *Service) Timeline(ctx context.Context, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Timeline(ctx, f, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := Paging{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// ExportCSV renders the whole filtered trail as CSV.
func (s *Service) ExportCSV(ctx context.Context, f Filters) ([]byte, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	rows, err := s.repo.TimelineAll(ctx, f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"occurred_at", "actor_id", "actor_email", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, e := range rows {
		record := []string{
			e.At.Format(time.RFC3339),
			strconv.FormatInt(e.ActorID, 10),
			e.ActorEmail,
			e.Action,
			e.Entity,
			e.EntityID,
			e.Meta,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
