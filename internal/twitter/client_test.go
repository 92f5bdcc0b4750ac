package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/michaelbrown/boarman/internal/apperr"
)

func TestLookupProfile(t *testing.T) {
	var gotAuth, gotPath, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("user.fields")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"id":"1","name":"Techie","username":"techie_person","description":"I build things",
			"public_metrics":{"followers_count":120,"following_count":80,"tweet_count":999},
			"most_recent_tweet_id":"42","pinned_tweet_id":"7"}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	p, err := c.LookupProfile(context.Background(), "techie_person")
	if err != nil {
		t.Fatalf("LookupProfile: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-token")
	}
	if gotPath != "/2/users/by/username/techie_person" {
		t.Errorf("path = %q", gotPath)
	}
	if gotFields != userFields {
		t.Errorf("user.fields = %q, want %q", gotFields, userFields)
	}

	want := Profile{
		Name:              "Techie",
		Username:          "techie_person",
		Bio:               "I build things",
		Followers:         120,
		Following:         80,
		TweetCount:        999,
		MostRecentTweetID: "42",
		PinnedTweetID:     "7",
	}
	if *p != want {
		t.Errorf("profile = %+v, want %+v", *p, want)
	}
}

func TestLookupProfileDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"1","name":"Quiet","username":"quiet","description":""}}`)
	}))
	defer srv.Close()

	p, err := NewClientWithBaseURL("tok", srv.URL).LookupProfile(context.Background(), "quiet")
	if err != nil {
		t.Fatalf("LookupProfile: %v", err)
	}
	if p.Bio != NoBio {
		t.Errorf("bio = %q, want %q", p.Bio, NoBio)
	}
	if p.Followers != 0 || p.Following != 0 || p.TweetCount != 0 {
		t.Errorf("counts = %d/%d/%d, want zeros", p.Followers, p.Following, p.TweetCount)
	}
	if p.MostRecentTweetID != NoTweets || p.PinnedTweetID != NoTweets {
		t.Errorf("tweet ids = %q/%q, want %q", p.MostRecentTweetID, p.PinnedTweetID, NoTweets)
	}
}

func TestLookupProfileUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"title":"Not Found Error"}]}`)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("tok", srv.URL).LookupProfile(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("kind = %v, want upstream", apperr.KindOf(err))
	}
}

func TestLookupProfileHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("tok", srv.URL).LookupProfile(context.Background(), "someone")
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("kind = %v, want upstream", apperr.KindOf(err))
	}
}

func TestLookupProfileMissingToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("", srv.URL).LookupProfile(context.Background(), "someone")
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth (err=%v)", apperr.KindOf(err), err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}
