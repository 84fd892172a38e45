package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
	}))
}

func TestRunAskStream(t *testing.T) {
	t.Run("consumes a full stream", func(t *testing.T) {
		srv := sseServer(t,
			`{"type":"metadata","sources":[{"title":"Cell Biology","snippet":"..."}],"has_context":true}`,
			`{"type":"content","content":"Mitochondria "}`,
			`{"type":"content","content":"produce ATP."}`,
			`{"type":"done"}`,
		)
		defer srv.Close()

		api := NewAPIClientWithConfig("", srv.URL)
		err := runAskStream(api, AskRequest{Question: "what do mitochondria do?"})
		assert.NoError(t, err)
	})

	t.Run("surfaces an error frame", func(t *testing.T) {
		srv := sseServer(t,
			`{"type":"metadata","sources":[],"has_context":false}`,
			`{"type":"error","error":"the answer service failed to start"}`,
		)
		defer srv.Close()

		api := NewAPIClientWithConfig("", srv.URL)
		err := runAskStream(api, AskRequest{Question: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "the answer service failed to start")
	})

	t.Run("rejects a truncated stream", func(t *testing.T) {
		srv := sseServer(t,
			`{"type":"metadata","sources":[],"has_context":false}`,
			`{"type":"content","content":"partial"}`,
		)
		defer srv.Close()

		api := NewAPIClientWithConfig("", srv.URL)
		err := runAskStream(api, AskRequest{Question: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without a terminal event")
	})
}
