package eventfeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentry/mcp-agent-go/pkg/agent"
)

type cannedModel struct {
	responses []*agent.Response
}

func (m *cannedModel) Complete(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	if len(m.responses) == 0 {
		return &agent.Response{Text: "done"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func newTestHandler(t *testing.T, responses ...*agent.Response) http.Handler {
	t.Helper()
	loop, err := agent.New(&cannedModel{responses: responses}, nil, agent.Options{})
	require.NoError(t, err)
	return NewHandler(loop, Options{})
}

func TestFeedStreamsRun(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &agent.Response{Text: "the answer"})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "?prompt=hello")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, "event: turn_started")
	assert.Contains(t, text, "event: assistant_text")
	assert.Contains(t, text, "event: result")
	assert.Contains(t, text, `"final_answer":"the answer"`)
}

func TestFeedAcceptsPostBody(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &agent.Response{Text: "ok"})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(`{"prompt": "hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: result")
}

func TestFeedRejectsMissingPrompt(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedAllowsCrossOrigin(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &agent.Response{Text: "ok"})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"?prompt=hi", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestFeedReportsRunError(t *testing.T) {
	t.Parallel()

	// An unparseable ReAct run ends with a strategy failure on the stream.
	bad := &agent.Response{Text: "free text"}
	loop, err := agent.New(&cannedModel{responses: []*agent.Response{bad, bad, bad}}, nil,
		agent.Options{Strategy: agent.StrategyReAct})
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(loop, Options{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "?prompt=hi")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: error")
}
