package respond_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/showteam/teamhub/internal/app/system/respond"
)

type createBody struct {
	Name  string `json:"name" validate:"required,max=5"`
	Count int    `json:"count" validate:"gte=0"`
}

func decode(t *testing.T, body string, limit int64) (createBody, error) {
	t.Helper()
	var out createBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	err := respond.Decode(rec, req, limit, &out)
	return out, err
}

func TestDecode(t *testing.T) {
	got, err := decode(t, `{"name":"abc","count":2}`, 1024)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "abc" || got.Count != 2 {
		t.Errorf("decoded %+v", got)
	}

	for _, body := range []string{``, `{"name":`, `{"name":"abc","extra":1}`, `{"name":""}`, `{"name":"toolong"}`} {
		if _, err := decode(t, body, 1024); err == nil {
			t.Errorf("Decode(%q): expected an error", body)
		}
	}

	if _, err := decode(t, `{"name":"abc","count":2}`, 4); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("oversized body: got %v", err)
	}
}

func TestBadRequest_ListsFields(t *testing.T) {
	err := respond.Validate(&createBody{Count: -1})
	rec := httptest.NewRecorder()
	respond.BadRequest(rec, err)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Fields["name"] != "required" || body.Fields["count"] != "gte" {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestErrorHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.NotFound(rec, "team")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "team not found") {
		t.Errorf("NotFound: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	respond.Upstream(rec, "delete team")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Upstream: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
