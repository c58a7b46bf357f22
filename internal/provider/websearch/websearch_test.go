package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func call(query string) capability.Call {
	now := time.Now()
	return capability.Call{Tag: capability.LiveSearch, Query: query, StartedAt: now, Deadline: now.Add(5 * time.Second)}
}

func searchServer(t *testing.T, status int, resp Response, seen *Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSearch(t *testing.T) {
	var seen Request
	srv := searchServer(t, http.StatusOK, Response{
		Answer:  "Two new CVEs",
		Results: []Item{{Title: "CVE roundup", URL: "https://example.com/a", Content: "..."}},
	}, &seen)

	c, err := NewClient(srv.URL, "secret", 0)
	require.NoError(t, err)

	resp, err := c.Search(context.Background(), Request{Query: "cve", MaxResults: 3})
	require.NoError(t, err)
	assert.Equal(t, "Two new CVEs", resp.Answer)
	require.Len(t, resp.Results, 1)

	assert.Equal(t, "secret", seen.APIKey)
	assert.Equal(t, "cve", seen.Query)
	assert.Equal(t, "basic", seen.SearchDepth)
	assert.Equal(t, 3, seen.MaxResults)
}

func TestClientStatusError(t *testing.T) {
	srv := searchServer(t, http.StatusUnauthorized, Response{}, nil)
	c, err := NewClient(srv.URL, "bad", 0)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Request{Query: "x"})
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusUnauthorized, status.Code)
}

func TestClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "", 1)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestClientRateLimitHonorsContext(t *testing.T) {
	srv := searchServer(t, http.StatusOK, Response{}, nil)
	c, err := NewClient(srv.URL, "k", 0.001)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Request{Query: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, Request{Query: "second"})
	assert.Error(t, err)
}

func TestClientRateLimitPastDeadline(t *testing.T) {
	srv := searchServer(t, http.StatusOK, Response{}, nil)
	c, err := NewClient(srv.URL, "k", 0.01)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Request{Query: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.Search(ctx, Request{Query: "second"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteThrottledCallTimesOut(t *testing.T) {
	srv := searchServer(t, http.StatusOK, Response{
		Results: []Item{{Title: "Release", URL: "https://kubernetes.io", Content: "1.31"}},
	}, nil)
	c, err := NewClient(srv.URL, "k", 0.01)
	require.NoError(t, err)

	p, err := New(llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Kubernetes 1.31 [1].", nil
	}), c, 5, zap.NewNop())
	require.NoError(t, err)

	first := p.Execute(context.Background(), call("kubernetes release"))
	require.True(t, first.Succeeded(), "error: %+v", first.Error)

	now := time.Now()
	second := p.Execute(context.Background(), capability.Call{
		Tag:       capability.LiveSearch,
		Query:     "kubernetes release",
		StartedAt: now,
		Deadline:  now.Add(time.Second),
	})
	assert.Equal(t, capability.OutcomeTimedOut, second.Outcome)
	require.NotNil(t, second.Error)
	assert.Equal(t, capability.KindProviderTimeout, second.Error.Kind)
}

func TestExecuteNewsSearch(t *testing.T) {
	var seen Request
	srv := searchServer(t, http.StatusOK, Response{
		Results: []Item{
			{Title: "Patch Tuesday", URL: "https://example.com/patch", Content: "Fixes 60 flaws", PublishedDate: "2024-10-08"},
			{Title: "No link", Content: "dropped from sources"},
		},
	}, &seen)
	c, err := NewClient(srv.URL, "k", 0)
	require.NoError(t, err)

	var prompt string
	p, err := New(llm.CompleterFunc(func(ctx context.Context, pr string) (string, error) {
		prompt = pr
		return "Microsoft fixed 60 flaws [1].", nil
	}), c, 5, zap.NewNop())
	require.NoError(t, err)

	res := p.Execute(context.Background(), call("What are the latest security news?"))

	require.True(t, res.Succeeded(), "error: %+v", res.Error)
	assert.Equal(t, "Microsoft fixed 60 flaws [1].", res.Content)
	assert.Equal(t, []capability.SourceRef{{Kind: "web", ID: "https://example.com/patch", Title: "Patch Tuesday"}}, res.Sources)
	assert.Equal(t, "news", seen.Topic)
	assert.Equal(t, NewsDays, seen.Days)
	assert.Contains(t, prompt, "[1] Patch Tuesday (https://example.com/patch) 2024-10-08")
	assert.Contains(t, prompt, "Focus on the most recent events")
}

type stubSearcher struct {
	resp *Response
	err  error
}

func (s stubSearcher) Search(ctx context.Context, req Request) (*Response, error) {
	return s.resp, s.err
}

func TestExecuteFailures(t *testing.T) {
	model := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "unused", nil
	})

	tests := []struct {
		name     string
		searcher stubSearcher
		category string
	}{
		{name: "rate limited", searcher: stubSearcher{err: &StatusError{Code: 429}}, category: CategoryRateLimit},
		{name: "server error", searcher: stubSearcher{err: &StatusError{Code: 502}}, category: CategorySearch},
		{name: "no results", searcher: stubSearcher{resp: &Response{}}, category: CategoryNoResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(model, tt.searcher, 5, zap.NewNop())
			require.NoError(t, err)
			res := p.Execute(context.Background(), call("kubernetes release"))
			assert.Equal(t, capability.OutcomeFailure, res.Outcome)
			assert.Equal(t, tt.category, res.Error.Category)
		})
	}
}

func TestExecuteUsesSearchAnswerWhenModelFails(t *testing.T) {
	p, err := New(llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("overloaded")
	}), stubSearcher{resp: &Response{
		Answer:  "Kubernetes 1.31 was released.",
		Results: []Item{{Title: "Release", URL: "https://kubernetes.io"}},
	}}, 5, zap.NewNop())
	require.NoError(t, err)

	res := p.Execute(context.Background(), call("kubernetes release"))
	require.True(t, res.Succeeded())
	assert.Equal(t, "Kubernetes 1.31 was released.", res.Content)
	assert.Equal(t, false, res.Metadata["news"])
}

func TestIsNewsQuery(t *testing.T) {
	assert.True(t, IsNewsQuery("Latest ransomware trends"))
	assert.True(t, IsNewsQuery("Какие последние новости?"))
	assert.False(t, IsNewsQuery("kubernetes release notes"))
}
