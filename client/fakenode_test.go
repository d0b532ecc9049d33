package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// rpcHandler answers a single JSON-RPC method. Returning a non nil error
// object results in a JSON-RPC error response.
type rpcHandler func(params json.RawMessage) (interface{}, *jsonResponseError)

// fakeNode is a JSON-RPC server answering only registered methods.
type fakeNode struct {
	t        testing.TB
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newFakeNode(t testing.TB) (*fakeNode, *httptest.Server) {
	n := &fakeNode{
		t:        t,
		handlers: make(map[string]rpcHandler),
		calls:    make(map[string]int),
	}
	srv := httptest.NewServer(n)
	return n, srv
}

func (n *fakeNode) handle(method string, h rpcHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

func (n *fakeNode) callCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		n.t.Errorf("cannot decode request: %s", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	h, ok := n.handlers[req.Method]
	n.calls[req.Method]++
	n.mu.Unlock()

	if !ok {
		n.t.Errorf("unexpected method %q", req.Method)
		http.Error(w, "unknown method", http.StatusNotFound)
		return
	}

	result, rpcErr := h(req.Params)
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		n.t.Errorf("cannot encode response: %s", err)
	}
}

// queryType returns the request type of query params.
func queryType(t testing.TB, params json.RawMessage) map[string]interface{} {
	t.Helper()
	var p map[string]interface{}
	if err := json.Unmarshal(params, &p); err != nil {
		t.Errorf("cannot decode query params: %s", err)
	}
	return p
}
