// Package meshtest provides an in-memory mailbox service for tests.
//
// The server implements the subset of the protocol the client speaks:
// handshake, outbox upload (single and chunked), inbox listing, message
// and chunk download, HEAD, acknowledgement and tracking. It checks that
// every request carries an authorization header for the mailbox in the
// path, and records every request for later assertions.
package meshtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type message struct {
	id         string
	from, to   string
	workflowID string
	fileName   string
	localID    string
	subject    string
	compressed bool
	total      int
	chunks     map[int][]byte
	acked      bool
}

func (m *message) complete() bool {
	return len(m.chunks) == m.total
}

// Interceptor may answer a request before normal routing. It returns
// the status to reply with, or 0 to let the request through.
type Interceptor func(r *http.Request) int

// Server is a fake mailbox service.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nextID    int
	messages  map[string]*message
	requests  []Request
	intercept Interceptor
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{messages: make(map[string]*message)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Intercept installs fn ahead of routing. Pass nil to remove it.
func (s *Server) Intercept(fn Interceptor) {
	s.mu.Lock()
	s.intercept = fn
	s.mu.Unlock()
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns the number of recorded requests matching method whose
// path satisfies match.
func (s *Server) Count(method string, match func(path string) bool) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && match(r.Path) {
			n++
		}
	}
	return n
}

// Deliver places a message directly into mailbox to's inbox. Each chunk
// is stored as given; compressed marks chunks as gzip streams.
func (s *Server) Deliver(from, to, fileName string, compressed bool, chunks ...[]byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.newMessageLocked(from, to, len(chunks))
	m.fileName = fileName
	m.workflowID = "TEST_WORKFLOW"
	m.compressed = compressed
	for i, c := range chunks {
		m.chunks[i+1] = c
	}
	return m.id
}

func (s *Server) newMessageLocked(from, to string, total int) *message {
	s.nextID++
	m := &message{
		id:     fmt.Sprintf("%020d_MSG", s.nextID),
		from:   from,
		to:     to,
		total:  total,
		chunks: make(map[int][]byte),
	}
	s.messages[m.id] = m
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/vnd.mesh.v2+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, map[string]string{
		"errorEvent":       "TRANSFER",
		"errorCode":        strconv.Itoa(status),
		"errorDescription": description,
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	intercept := s.intercept
	s.mu.Unlock()

	if intercept != nil {
		if status := intercept(r); status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	mailbox := parts[0]
	if !strings.HasPrefix(r.Header.Get("Authorization"), "NHSMESH "+mailbox+":") {
		writeError(w, http.StatusForbidden, "Authentication failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"mailbox_id": mailbox})
	case len(parts) == 2 && parts[1] == "outbox" && r.Method == http.MethodPost:
		s.postOutbox(w, r, mailbox, body)
	case len(parts) == 4 && parts[1] == "outbox" && r.Method == http.MethodPost:
		s.postChunk(w, r, mailbox, parts[2], parts[3], body)
	case len(parts) == 4 && parts[1] == "outbox" && parts[2] == "tracking" && r.Method == http.MethodGet:
		s.track(w, mailbox, parts[3])
	case len(parts) == 2 && parts[1] == "inbox" && r.Method == http.MethodGet:
		s.list(w, mailbox)
	case len(parts) == 3 && parts[1] == "inbox":
		s.download(w, r, mailbox, parts[2], "1")
	case len(parts) == 4 && parts[1] == "inbox" && r.Method == http.MethodGet:
		s.download(w, r, mailbox, parts[2], parts[3])
	case len(parts) == 5 && parts[1] == "inbox" && parts[3] == "status" && r.Method == http.MethodPut:
		s.acknowledge(w, mailbox, parts[2])
	default:
		writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) postOutbox(w http.ResponseWriter, r *http.Request, mailbox string, body []byte) {
	if r.Header.Get("Mex-From") != mailbox {
		writeError(w, http.StatusForbidden, "mex-from does not match mailbox")
		return
	}
	to := r.Header.Get("Mex-To")
	if to == "" || r.Header.Get("Mex-WorkflowID") == "" {
		writeError(w, http.StatusBadRequest, "missing routing headers")
		return
	}

	total := 1
	if rng := r.Header.Get("Mex-Chunk-Range"); rng != "" {
		cur, tot, _ := strings.Cut(rng, ":")
		n, err := strconv.Atoi(tot)
		if cur != "1" || err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid chunk range "+rng)
			return
		}
		total = n
	}

	m := s.newMessageLocked(mailbox, to, total)
	m.workflowID = r.Header.Get("Mex-WorkflowID")
	m.fileName = r.Header.Get("Mex-FileName")
	m.localID = r.Header.Get("Mex-LocalID")
	m.subject = r.Header.Get("Mex-Subject")
	m.compressed = r.Header.Get("Mex-Content-Compressed") == "Y"
	m.chunks[1] = body

	status := http.StatusOK
	if total > 1 {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]string{"message_id": m.id})
}

func (s *Server) postChunk(w http.ResponseWriter, r *http.Request, mailbox, id, index string, body []byte) {
	m, ok := s.messages[id]
	if !ok || m.from != mailbox {
		writeError(w, http.StatusNotFound, "unknown message "+id)
		return
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 2 || n > m.total {
		writeError(w, http.StatusBadRequest, "invalid chunk index "+index)
		return
	}
	if want := fmt.Sprintf("%d:%d", n, m.total); r.Header.Get("Mex-Chunk-Range") != want {
		writeError(w, http.StatusBadRequest, "chunk range must be "+want)
		return
	}
	if _, ok := m.chunks[n-1]; !ok {
		writeError(w, http.StatusBadRequest, "chunks must be uploaded in order")
		return
	}
	m.chunks[n] = body
	writeJSON(w, http.StatusOK, map[string]string{"message_id": m.id})
}

func (s *Server) list(w http.ResponseWriter, mailbox string) {
	ids := []string{}
	for id, m := range s.messages {
		if m.to == mailbox && !m.acked && m.complete() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	writeJSON(w, http.StatusOK, map[string]any{"messages": ids, "approx_inbox_count": len(ids)})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, mailbox, id, index string) {
	m, ok := s.messages[id]
	if !ok || m.to != mailbox || m.acked || !m.complete() {
		writeError(w, http.StatusNotFound, "unknown message "+id)
		return
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 1 || n > m.total {
		writeError(w, http.StatusNotFound, "unknown chunk "+index)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Mex-MessageID", m.id)
	h.Set("Mex-From", m.from)
	h.Set("Mex-To", m.to)
	h.Set("Mex-WorkflowID", m.workflowID)
	h.Set("Mex-FileName", m.fileName)
	h.Set("Mex-MessageType", "DATA")
	if m.localID != "" {
		h.Set("Mex-LocalID", m.localID)
	}
	if m.subject != "" {
		h.Set("Mex-Subject", m.subject)
	}
	if m.compressed {
		h.Set("Content-Encoding", "gzip")
	}
	status := http.StatusOK
	if m.total > 1 {
		h.Set("Mex-Chunk-Range", fmt.Sprintf("%d:%d", n, m.total))
		h.Set("Mex-Total-Chunks", strconv.Itoa(m.total))
		if n < m.total {
			status = http.StatusPartialContent
		}
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(m.chunks[n])
}

func (s *Server) acknowledge(w http.ResponseWriter, mailbox, id string) {
	m, ok := s.messages[id]
	if !ok || m.to != mailbox {
		writeError(w, http.StatusNotFound, "unknown message "+id)
		return
	}
	m.acked = true
	writeJSON(w, http.StatusOK, map[string]string{"message_id": id})
}

func (s *Server) track(w http.ResponseWriter, mailbox, id string) {
	m, ok := s.messages[id]
	if !ok || m.from != mailbox {
		writeError(w, http.StatusNotFound, "unknown message "+id)
		return
	}
	status := "Accepted"
	if m.acked {
		status = "Acknowledged"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message_id":     m.id,
		"local_id":       m.localID,
		"workflow_id":    m.workflowID,
		"filename":       m.fileName,
		"recipient":      m.to,
		"status":         status,
		"status_success": true,
	})
}
