// internal/app/board/view.go
package board

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/showteam/teamhub/internal/app/system/paging"
	"github.com/showteam/teamhub/internal/domain/models"
)

// Tab selects which tasks of the team a board shows.
type Tab string

const (
	TabAll     Tab = "ALL"
	TabMine    Tab = "MINE"    // delegated to the member
	TabCreated Tab = "CREATED" // created by the member
)

// ParseTab converts a query value into a Tab. Empty means TabAll.
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToUpper(s)) {
	case "", TabAll:
		return TabAll, nil
	case TabMine:
		return TabMine, nil
	case TabCreated:
		return TabCreated, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Sort is the ordering applied to a board page.
type Sort string

const (
	SortDefault   Sort = "DEFAULT" // creation order
	SortTitleAsc  Sort = "TITLE_ASC"
	SortTitleDesc Sort = "TITLE_DESC"
	SortDueAsc    Sort = "DUE_ASC"
	SortDueDesc   Sort = "DUE_DESC"
	SortStatus    Sort = "STATUS" // column order, then title
)

// ParseSort converts a query value into a Sort. Empty means SortDefault.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToUpper(s)) {
	case "", SortDefault:
		return SortDefault, nil
	case SortTitleAsc:
		return SortTitleAsc, nil
	case SortTitleDesc:
		return SortTitleDesc, nil
	case SortDueAsc:
		return SortDueAsc, nil
	case SortDueDesc:
		return SortDueDesc, nil
	case SortStatus:
		return SortStatus, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

func (s Sort) less(a, b models.Task) bool {
	switch s {
	case SortTitleAsc:
		return text.Fold(a.Title) < text.Fold(b.Title)
	case SortTitleDesc:
		return text.Fold(a.Title) > text.Fold(b.Title)
	case SortDueAsc:
		return a.DueAt.Before(b.DueAt)
	case SortDueDesc:
		return a.DueAt.After(b.DueAt)
	case SortStatus:
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		return text.Fold(a.Title) < text.Fold(b.Title)
	case SortDefault:
		return false
	}
	return false
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Inverted reports whether From falls after To.
func (r DateRange) Inverted() bool {
	return startOfDay(r.From).After(startOfDay(r.To))
}

func (r DateRange) contains(t time.Time) bool {
	day := startOfDay(t)
	return !day.Before(startOfDay(r.From)) && !day.After(startOfDay(r.To))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RangeErrors flags inverted date ranges. A flagged range is not applied.
type RangeErrors struct {
	Start bool `json:"start"`
	Due   bool `json:"due"`
}

// Any reports whether a range is flagged.
func (e RangeErrors) Any() bool { return e.Start || e.Due }

// View is the client-side state of a board: tab, search, filters, sort
// and page. It is never persisted.
type View struct {
	Tab      Tab                 `json:"tab"`
	Query    string              `json:"query"`
	Status   models.Status       `json:"status,omitempty"`   // empty matches any
	Category models.TaskCategory `json:"category,omitempty"` // empty matches any
	Start    DateRange           `json:"start"`
	Due      DateRange           `json:"due"`
	Sort     Sort                `json:"sort"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// DefaultView shows every task starting and due between 31 days before
// and 30 days after now.
func DefaultView(now time.Time) View {
	r := DateRange{From: now.AddDate(0, 0, -31), To: now.AddDate(0, 0, 30)}
	return View{
		Tab:      TabAll,
		Start:    r,
		Due:      r,
		Sort:     SortDefault,
		Page:     1,
		PageSize: paging.PageSize,
	}
}

// Errors reports the view's inverted ranges.
func (v View) Errors() RangeErrors {
	return RangeErrors{Start: v.Start.Inverted(), Due: v.Due.Inverted()}
}

// Page is one page of a board after the view was applied.
type Page struct {
	Tasks  []models.Task `json:"tasks"`
	Window paging.Window `json:"window"`
	Errors RangeErrors   `json:"errors"`
}

// Apply runs tab, filters, sort and pagination over tasks for userID.
// tasks is not modified.
func (v View) Apply(tasks []models.Task, userID string) Page {
	errs := v.Errors()
	q := text.Fold(strings.TrimSpace(v.Query))

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch v.Tab {
		case TabMine:
			if !t.IsDelegate(userID) {
				continue
			}
		case TabCreated:
			if t.Created.Member.ID != userID {
				continue
			}
		case TabAll:
		}
		if q != "" && !strings.Contains(text.Fold(t.Title), q) {
			continue
		}
		if v.Status != "" && t.Status != v.Status {
			continue
		}
		if v.Category != "" && t.Category != v.Category {
			continue
		}
		if !errs.Start && !v.Start.From.IsZero() && !v.Start.contains(t.StartAt) {
			continue
		}
		if !errs.Due && !v.Due.From.IsZero() && !v.Due.contains(t.DueAt) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool { return v.Sort.less(out[i], out[j]) })

	w := paging.Compute(len(out), v.Page, v.PageSize)
	return Page{Tasks: paging.Slice(out, w), Window: w, Errors: errs}
}
