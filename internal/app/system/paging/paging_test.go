package paging

import (
	"net/http/httptest"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		total int
		page  int
		size  int
		want  Window
	}{
		{
			name:  "empty list",
			total: 0, page: 1, size: 10,
			want: Window{Page: 1, PageSize: 10, Pages: 1},
		},
		{
			name:  "first of three pages",
			total: 25, page: 1, size: 10,
			want: Window{Page: 1, PageSize: 10, Pages: 3, Total: 25, Start: 1, End: 10, HasNext: true},
		},
		{
			name:  "last partial page",
			total: 25, page: 3, size: 10,
			want: Window{Page: 3, PageSize: 10, Pages: 3, Total: 25, Start: 21, End: 25, HasPrev: true},
		},
		{
			name:  "page past the end is clamped",
			total: 25, page: 9, size: 10,
			want: Window{Page: 3, PageSize: 10, Pages: 3, Total: 25, Start: 21, End: 25, HasPrev: true},
		},
		{
			name:  "zero page and size use defaults",
			total: 5, page: 0, size: 0,
			want: Window{Page: 1, PageSize: PageSize, Pages: 1, Total: 5, Start: 1, End: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.total, tt.page, tt.size); got != tt.want {
				t.Errorf("Compute(%d, %d, %d) = %+v, want %+v", tt.total, tt.page, tt.size, got, tt.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	got := Slice(rows, Compute(len(rows), 2, 2))
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("Slice page 2 = %v, want [3 4]", got)
	}
	if got := Slice([]int{}, Compute(0, 1, 2)); got == nil || len(got) != 0 {
		t.Errorf("Slice of empty list = %v, want empty non-nil", got)
	}
}

func TestParsePageAndSize(t *testing.T) {
	tests := []struct {
		url      string
		wantPage int
		wantSize int
	}{
		{"/tasks", 1, PageSize},
		{"/tasks?page=3&page_size=5", 3, 5},
		{"/tasks?page=-2&page_size=abc", 1, PageSize},
		{"/tasks?page_size=1000", 1, MaxPageSize},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := ParsePage(r); got != tt.wantPage {
			t.Errorf("ParsePage(%s) = %d, want %d", tt.url, got, tt.wantPage)
		}
		if got := ParsePageSize(r); got != tt.wantSize {
			t.Errorf("ParsePageSize(%s) = %d, want %d", tt.url, got, tt.wantSize)
		}
	}
}
