// Package storetest provides an in-memory stand-in for the record store's
// REST API, for tests of the store client and everything built on it.
package storetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// FieldKind is the type a collection field is validated against
type FieldKind int

// Field kinds
const (
	Text FieldKind = iota
	Number
	Bool
	Relation
)

// Schema describes the validated fields of a collection
type Schema struct {
	Fields   map[string]FieldKind
	Required []string
}

// Server is a fake record store backed by maps
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	schemas     map[string]Schema
	records     map[string][]map[string]interface{}
	seq         int
	unavailable bool
	requests    map[string]int

	identity string
	password string
	token    string
	tokenTTL time.Duration
}

// NewServer starts a fake store with the stages, tasks and features schemas
// registered. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		schemas:  make(map[string]Schema),
		records:  make(map[string][]map[string]interface{}),
		requests: make(map[string]int),
		tokenTTL: time.Hour,
	}
	s.RegisterCollection("stages", Schema{
		Fields: map[string]FieldKind{
			"type": Text, "title": Text, "description": Text, "isCompleted": Bool,
			"duration": Number, "traditionalDuration": Number, "aiBenefit": Text,
		},
		Required: []string{"title"},
	})
	s.RegisterCollection("tasks", Schema{
		Fields:   map[string]FieldKind{"title": Text, "isCompleted": Bool, "field": Relation},
		Required: []string{"title"},
	})
	s.RegisterCollection("features", Schema{
		Fields: map[string]FieldKind{"type": Text, "title": Text, "description": Text, "icon": Text},
	})

	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// RegisterCollection adds or replaces a collection schema
func (s *Server) RegisterCollection(name string, schema Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[name] = schema
	if _, ok := s.records[name]; !ok {
		s.records[name] = nil
	}
}

// RequireAuth makes every record request require a token from authenticating
// as identity/password.
func (s *Server) RequireAuth(identity, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.password = password
}

// SetTokenTTL changes the lifetime of issued tokens
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// SetUnavailable makes every request fail with 503 until reset
func (s *Server) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// Requests returns how many requests hit "METHOD /path-prefix" keys such as
// "GET stages" or "POST auth".
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// Seed inserts a record without validation and returns its id
func (s *Server) Seed(collection string, record map[string]interface{}) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(collection, record)
}

// Record returns a copy of a stored record, or nil
func (s *Server) Record(collection, id string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, rec := s.findLocked(collection, id); rec != nil {
		return copyRecord(rec)
	}
	return nil
}

// Count returns the number of records in a collection
func (s *Server) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[collection])
}

func (s *Server) insertLocked(collection string, record map[string]interface{}) string {
	s.seq++
	rec := copyRecord(record)
	id, _ := rec["id"].(string)
	if id == "" {
		id = fmt.Sprintf("r%014d", s.seq)
		rec["id"] = id
	}
	stamp := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
	if _, ok := rec["created"]; !ok {
		rec["created"] = stamp.Format("2006-01-02 15:04:05.000Z")
	}
	rec["updated"] = rec["created"]
	rec["collectionName"] = collection
	s.records[collection] = append(s.records[collection], rec)
	return id
}

func (s *Server) findLocked(collection, id string) (int, map[string]interface{}) {
	for i, rec := range s.records[collection] {
		if rec["id"] == id {
			return i, rec
		}
	}
	return -1, nil
}

var recordsRoute = regexp.MustCompile(`^/api/collections/([^/]+)/(records|auth-with-password)(?:/([^/]+))?$`)

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		writeError(w, http.StatusServiceUnavailable, "Service unavailable.", nil)
		return
	}
	if r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": 200, "message": "API is healthy."})
		return
	}

	m := recordsRoute.FindStringSubmatch(r.URL.Path)
	if m == nil {
		writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
		return
	}
	collection, kind, id := m[1], m[2], m[3]

	if kind == "auth-with-password" {
		s.requests[r.Method+" auth"]++
		s.handleAuth(w, r)
		return
	}
	s.requests[r.Method+" "+collection]++

	if s.identity != "" && !s.validToken(r.Header.Get("Authorization")) {
		writeError(w, http.StatusUnauthorized, "The request requires valid record authorization token.", nil)
		return
	}
	schema, ok := s.schemas[collection]
	if !ok {
		writeError(w, http.StatusNotFound, "Missing collection context.", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.handleList(w, r, collection)
	case r.Method == http.MethodGet:
		if _, rec := s.findLocked(collection, id); rec != nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
	case r.Method == http.MethodPost && id == "":
		body, ok := decodeBody(w, r)
		if !ok {
			return
		}
		if data := validate(schema, body, true); data != nil {
			writeError(w, http.StatusBadRequest, "Failed to create record.", data)
			return
		}
		newID := s.insertLocked(collection, body)
		_, rec := s.findLocked(collection, newID)
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodPatch && id != "":
		_, rec := s.findLocked(collection, id)
		if rec == nil {
			writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
			return
		}
		body, ok := decodeBody(w, r)
		if !ok {
			return
		}
		if data := validate(schema, body, false); data != nil {
			writeError(w, http.StatusBadRequest, "Failed to update record.", data)
			return
		}
		for k, v := range body {
			if k == "id" || k == "created" {
				continue
			}
			rec[k] = v
		}
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodDelete && id != "":
		i, rec := s.findLocked(collection, id)
		if rec == nil {
			writeError(w, http.StatusNotFound, "The requested resource wasn't found.", nil)
			return
		}
		s.records[collection] = append(s.records[collection][:i], s.records[collection][i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.", nil)
	}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Identity != s.identity || body.Password != s.password || s.identity == "" {
		writeError(w, http.StatusBadRequest, "Failed to authenticate.", nil)
		return
	}
	claims := jwt.MapClaims{"id": "user1", "exp": time.Now().Add(s.tokenTTL).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("storetest"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	s.token = token
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"record": map[string]interface{}{"id": "user1", "email": body.Identity},
	})
}

func (s *Server) validToken(header string) bool {
	return header != "" && (header == s.token || header == "Bearer "+s.token)
}

var filterExpr = regexp.MustCompile(`^\s*(\w+)\s*(\?=|=)\s*'((?:[^'\\]|\\.)*)'\s*$`)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, collection string) {
	q := r.URL.Query()
	items := make([]map[string]interface{}, 0, len(s.records[collection]))

	match := func(map[string]interface{}) bool { return true }
	if f := q.Get("filter"); f != "" {
		m := filterExpr.FindStringSubmatch(f)
		if m == nil {
			writeError(w, http.StatusBadRequest, "Something went wrong while processing your request. Invalid filter parameters.", nil)
			return
		}
		field, op := m[1], m[2]
		value := strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(m[3])
		match = func(rec map[string]interface{}) bool {
			if op == "?=" {
				for _, v := range toStrings(rec[field]) {
					if v == value {
						return true
					}
				}
				return false
			}
			return fmt.Sprint(rec[field]) == value
		}
	}
	for _, rec := range s.records[collection] {
		if match(rec) {
			items = append(items, rec)
		}
	}

	if sortKey := q.Get("sort"); sortKey != "" {
		desc := strings.HasPrefix(sortKey, "-")
		key := strings.TrimLeft(sortKey, "-+")
		sort.SliceStable(items, func(i, j int) bool {
			a, b := fmt.Sprint(items[i][key]), fmt.Sprint(items[j][key])
			if desc {
				return a > b
			}
			return a < b
		})
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	if perPage < 1 {
		perPage = 30
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	from := (page - 1) * perPage
	if from > total {
		from = total
	}
	to := from + perPage
	if to > total {
		to = total
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":       page,
		"perPage":    perPage,
		"totalItems": total,
		"totalPages": totalPages,
		"items":      items[from:to],
	})
}

func validate(schema Schema, body map[string]interface{}, creating bool) map[string]interface{} {
	data := map[string]interface{}{}
	if creating {
		for _, name := range schema.Required {
			if v, ok := body[name]; !ok || v == nil || v == "" {
				data[name] = map[string]string{"code": "validation_required", "message": "Cannot be blank."}
			}
		}
	}
	for name, value := range body {
		kind, known := schema.Fields[name]
		if !known {
			continue
		}
		ok := true
		switch kind {
		case Bool:
			_, ok = value.(bool)
		case Number:
			_, ok = value.(float64)
		case Text:
			_, ok = value.(string)
		case Relation:
			switch v := value.(type) {
			case string:
			case []interface{}:
				for _, item := range v {
					if _, isString := item.(string); !isString {
						ok = false
					}
				}
			default:
				ok = false
			}
		}
		if !ok {
			data[name] = map[string]string{"code": "validation_invalid_value", "message": "Invalid value."}
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load the submitted data due to invalid formatting.", nil)
		return nil, false
	}
	return body, true
}

func toStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func copyRecord(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	writeJSON(w, status, map[string]interface{}{"status": status, "message": message, "data": data})
}
