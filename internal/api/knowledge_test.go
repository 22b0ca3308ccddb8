package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func seedRecords(t *testing.T, d *testDeps, contents ...string) {
	t.Helper()
	for _, c := range contents {
		if _, err := d.knowledge.Ingest(t.Context(), testOwner, c, nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestKnowledge_List(t *testing.T) {
	d := newTestDeps(t)
	seedRecords(t, d, "first", "second", "third")

	w := d.do(http.MethodGet, "/v1/knowledge", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/knowledge = %d", w.Code)
	}

	var resp knowledgeListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 || len(resp.Items) != 3 {
		t.Errorf("count = %d, items = %d, want 3", resp.Count, len(resp.Items))
	}
}

func TestKnowledge_ListLimit(t *testing.T) {
	d := newTestDeps(t)
	seedRecords(t, d, "first", "second", "third")

	w := d.do(http.MethodGet, "/v1/knowledge?limit=2", "", true)
	var resp knowledgeListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}

	for _, bad := range []string{"0", "-1", "abc", "99999"} {
		w := d.do(http.MethodGet, "/v1/knowledge?limit="+bad, "", true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestKnowledge_Delete(t *testing.T) {
	d := newTestDeps(t)
	seedRecords(t, d, "to be removed")
	id := d.knowledge.records[0].ID

	w := d.do(http.MethodDelete, "/v1/knowledge/"+id.String(), "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE = %d, body %s", w.Code, w.Body.String())
	}
	if len(d.knowledge.records) != 0 {
		t.Errorf("records = %d, want 0", len(d.knowledge.records))
	}

	t.Run("absent record", func(t *testing.T) {
		w := d.do(http.MethodDelete, "/v1/knowledge/"+uuid.NewString(), "", true)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		w := d.do(http.MethodDelete, "/v1/knowledge/not-a-uuid", "", true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestKnowledge_Stats(t *testing.T) {
	d := newTestDeps(t)
	seedRecords(t, d, "a", "b")

	w := d.do(http.MethodGet, "/v1/knowledge/stats", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/knowledge/stats = %d", w.Code)
	}

	var resp map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["count"] != 2 {
		t.Errorf("count = %d, want 2", resp["count"])
	}
}

func TestKnowledge_Auth(t *testing.T) {
	d := newTestDeps(t)

	for _, path := range []string{"/v1/knowledge", "/v1/knowledge/stats"} {
		w := d.do(http.MethodGet, path, "", false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s unauthenticated = %d, want 401", path, w.Code)
		}
	}
}
