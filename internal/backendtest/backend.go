// Package backendtest runs an in-memory stand-in for the certificate backend
// REST API, for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Account is a user the fake accepts at login.
type Account struct {
	ID       int
	FullName string
	Email    string
	Password string
	Role     string
	Token    string
}

// Call is one request the fake received.
type Call struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type Backend struct {
	URL string

	mu        sync.Mutex
	nextID    int
	resources map[string]map[int]map[string]any
	accounts  []Account
	calls     []Call
	failures  map[string]int
}

var resourceNames = []string{"certificates", "courses", "templates", "users"}

// New starts the fake and closes it when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		nextID:    100,
		resources: make(map[string]map[int]map[string]any),
		failures:  make(map[string]int),
	}
	for _, name := range resourceNames {
		b.resources[name] = make(map[int]map[string]any)
	}
	server := httptest.NewServer(b.router())
	t.Cleanup(server.Close)
	b.URL = server.URL
	return b
}

// AddAccount registers a login and mirrors it into /api/users.
func (b *Backend) AddAccount(acct Account) Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acct.ID == 0 {
		acct.ID = b.allocate()
	}
	if acct.Token == "" {
		acct.Token = fmt.Sprintf("token-%d", acct.ID)
	}
	b.accounts = append(b.accounts, acct)
	b.resources["users"][acct.ID] = map[string]any{
		"id":       acct.ID,
		"fullName": acct.FullName,
		"email":    acct.Email,
		"role":     acct.Role,
		"isActive": true,
	}
	return acct
}

// Seed stores an entity and returns its id.
func (b *Backend) Seed(resource string, fields map[string]any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.allocate()
	entity := map[string]any{"id": id}
	for k, v := range fields {
		entity[k] = v
	}
	b.resources[resource][id] = entity
	return id
}

// Fail makes every request to path answer with status.
func (b *Backend) Fail(path string, status int) {
	b.mu.Lock()
	b.failures[path] = status
	b.mu.Unlock()
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo counts requests matching method and path.
func (b *Backend) CallsTo(method, path string) int {
	count := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			count++
		}
	}
	return count
}

// LastBody returns the body of the last request matching method and path.
func (b *Backend) LastBody(method, path string) string {
	calls := b.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method && calls[i].Path == path {
			return calls[i].Body
		}
	}
	return ""
}

func (b *Backend) allocate() int {
	b.nextID++
	return b.nextID
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Certificate Generation API is running"))
	})
	r.Post("/api/auth/login", b.handleLogin)
	r.Post("/api/auth/register", b.handleRegister)
	r.Get("/api/verify/{code}", b.handleVerify)
	for _, name := range resourceNames {
		name := name
		r.Route("/api/"+name, func(r chi.Router) {
			r.Use(b.requireToken)
			r.Get("/", b.handleList(name))
			if name == "certificates" {
				r.Get("/my", b.handleMine)
			}
			if name != "users" {
				r.Post("/", b.handleCreate(name))
			}
			r.Get("/{id}", b.handleGet(name))
			r.Put("/{id}", b.handleUpdate(name))
			r.Delete("/{id}", b.handleDelete(name))
		})
	}
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: string(body)})
		status, failing := b.failures[r.URL.Path]
		b.mu.Unlock()
		if failing {
			writeJSON(w, status, map[string]string{"error": "forced_failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.accountFor(r); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) accountFor(r *http.Request) (Account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		if token != "" && acct.Token == token {
			return acct, true
		}
	}
	return Account{}, false
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		if acct.Email == req.Email && acct.Password == req.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"token":    acct.Token,
				"type":     "Bearer",
				"id":       acct.ID,
				"fullName": acct.FullName,
				"email":    acct.Email,
				"role":     acct.Role,
			})
			return
		}
	}
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Invalid credentials"))
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	b.mu.Lock()
	for _, acct := range b.accounts {
		if acct.Email == req.Email {
			b.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Error: Email is already in use!"})
			return
		}
	}
	b.mu.Unlock()
	b.AddAccount(Account{FullName: req.FullName, Email: req.Email, Password: req.Password, Role: req.Role})
	_, _ = w.Write([]byte("User registered successfully!"))
}

func (b *Backend) handleMine(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.accountFor(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var out []map[string]any
	for _, cert := range b.list("certificates") {
		if recipient, ok := cert["recipient"].(map[string]any); ok && fmt.Sprint(recipient["id"]) == strconv.Itoa(acct.ID) {
			out = append(out, cert)
		}
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (b *Backend) handleVerify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	for _, cert := range b.list("certificates") {
		if cert["verificationCode"] == code {
			writeJSON(w, http.StatusOK, cert)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func (b *Backend) handleList(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nonNil(b.list(resource)))
	}
}

func (b *Backend) handleGet(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, ok := b.find(resource, chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, entity)
	}
}

func (b *Backend) handleCreate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		id := b.Seed(resource, fields)
		entity, _ := b.find(resource, strconv.Itoa(id))
		writeJSON(w, http.StatusOK, entity)
	}
}

func (b *Backend) handleUpdate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_id"})
			return
		}
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		b.mu.Lock()
		entity, ok := b.resources[resource][id]
		if ok {
			for k, v := range fields {
				entity[k] = v
			}
			entity["id"] = id
		}
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		found, _ := b.find(resource, strconv.Itoa(id))
		writeJSON(w, http.StatusOK, found)
	}
}

func (b *Backend) handleDelete(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_id"})
			return
		}
		b.mu.Lock()
		_, ok := b.resources[resource][id]
		delete(b.resources[resource], id)
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Backend) list(resource string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.resources[resource]))
	for id := range b.resources[resource] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyEntity(b.resources[resource][id]))
	}
	return out
}

func (b *Backend) find(resource, rawID string) (map[string]any, bool) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entity, ok := b.resources[resource][id]
	if !ok {
		return nil, false
	}
	return copyEntity(entity), true
}

func copyEntity(entity map[string]any) map[string]any {
	out := make(map[string]any, len(entity))
	for k, v := range entity {
		out[k] = v
	}
	return out
}

func nonNil(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
