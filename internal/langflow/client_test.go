package langflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/michaelbrown/boarman/internal/apperr"
)

func TestFetchSummary(t *testing.T) {
	var gotAuth, gotMethod string
	var gotBody runRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"outputs":[{"text":"a grant tooling project"}]}`)
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL, "lc-token").FetchSummary(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchSummary: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotAuth != "Bearer lc-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.InputType != "chat" || gotBody.OutputType != "chat" || gotBody.Tweaks == nil {
		t.Errorf("body = %+v", gotBody)
	}
	if string(raw) != `{"outputs":[{"text":"a grant tooling project"}]}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestFetchSummaryMissingToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").FetchSummary(context.Background(), "")
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth", apperr.KindOf(err))
	}
	if calls.Load() != 0 {
		t.Error("request sent without a token")
	}
}

func TestFetchSummaryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").FetchSummary(context.Background(), "")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("kind = %v, want upstream", apperr.KindOf(err))
	}
}
