package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	mrand "math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/containeroo/tinyflags"
	"gopkg.in/yaml.v3"
)

// Config is the mock API configuration root.
type Config struct {
	Port        int          `yaml:"port"`
	DataDir     string       `yaml:"dataDir"`
	RandomDelay bool         `yaml:"randomDelay"`
	PageSize    int          `yaml:"pageSize"`    // default page size for collections
	RequireCSRF bool         `yaml:"requireCSRF"` // reject writes without a matching X-CSRFToken
	Collections []Collection `yaml:"collections"`
}

// Collection is one in-memory REST collection mounted at Path.
type Collection struct {
	Path   string   `yaml:"path"`             // e.g. /api/widgets/
	Seed   string   `yaml:"seed,omitempty"`   // JSON array file in dataDir
	Search []string `yaml:"search,omitempty"` // fields matched by ?search=
}

// store holds the items of one collection keyed by id.
type store struct {
	mu     sync.Mutex
	nextID int
	items  map[int]map[string]any
}

// main starts the mock API with required YAML config.
func main() {
	var (
		flagConfigPath string
		flagLogBody    bool
	)

	tf := tinyflags.NewFlagSet("mock-api", tinyflags.ExitOnError)
	tf.StringVar(&flagConfigPath, "config", "", "Path to mock-api config.yaml (required)").Value()
	tf.BoolVar(&flagLogBody, "log-body", false, "Log JSON request bodies (may contain secrets)").Value()

	if err := tf.Parse(os.Args[1:]); err != nil {
		log.Fatal("flag parse error:", err)
	}

	if strings.TrimSpace(flagConfigPath) == "" {
		log.Fatal("missing required --config=<path to yaml>")
	}

	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// absolute stays absolute
	if !filepath.IsAbs(cfg.DataDir) {
		base := filepath.Dir(flagConfigPath)
		cfg.DataDir, _ = filepath.Abs(filepath.Join(base, cfg.DataDir))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/csrf/", issueCSRF)
	for _, col := range cfg.Collections {
		st, err := loadStore(cfg.DataDir, col.Seed)
		if err != nil {
			log.Fatalf("collection %s: %v", col.Path, err)
		}
		mux.HandleFunc(col.Path, func(w http.ResponseWriter, r *http.Request) {
			if cfg.RandomDelay {
				applyRandomDelay(200, 1000)
			}
			logRequest(r, flagLogBody)
			if cfg.RequireCSRF && r.Method != http.MethodGet && !validCSRF(r) {
				writeJSON(w, http.StatusForbidden, map[string]any{"detail": "CSRF Failed: CSRF token missing or incorrect."})
				return
			}
			handleCollection(w, r, cfg, col, st)
		})
		log.Printf("collection mounted: %s (%d items)", col.Path, len(st.items))
	}

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Printf("Mock API listening on %s (data-dir: %s)", addr, cfg.DataDir)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// loadConfig reads the YAML configuration file and applies defaults.
func loadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	for i := range cfg.Collections {
		c := &cfg.Collections[i]
		if strings.TrimSpace(c.Path) == "" {
			return Config{}, fmt.Errorf("collection %d: empty path", i)
		}
		c.Path = strings.TrimRight(c.Path, "/") + "/"
	}
	return cfg, nil
}

// loadStore seeds a store from a JSON array file. An empty name gives an empty store.
func loadStore(dataDir, seed string) (*store, error) {
	st := &store{nextID: 1, items: map[int]map[string]any{}}
	if seed == "" {
		return st, nil
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, seed))
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("seed %s: %w", seed, err)
	}
	for _, it := range items {
		id := asInt(it["id"])
		if id == 0 {
			id = st.nextID
		}
		it["id"] = id
		st.items[id] = it
		st.nextID = max(st.nextID, id+1)
	}
	return st, nil
}

// handleCollection serves list/create on the collection root and retrieve/update/delete on <id>/.
func handleCollection(w http.ResponseWriter, r *http.Request, cfg Config, col Collection, st *store) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, col.Path), "/")

	st.mu.Lock()
	defer st.mu.Unlock()

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, listPage(r, cfg, col, st))
		case http.MethodPost:
			item, ok := decodeItem(w, r)
			if !ok {
				return
			}
			item["id"] = st.nextID
			st.items[st.nextID] = item
			st.nextID++
			writeJSON(w, http.StatusCreated, item)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": fmt.Sprintf("Method %q not allowed.", r.Method)})
		}
		return
	}

	id, err := strconv.Atoi(rest)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	item, found := st.items[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		upd, ok := decodeItem(w, r)
		if !ok {
			return
		}
		upd["id"] = id
		st.items[id] = upd
		writeJSON(w, http.StatusOK, upd)
	case http.MethodDelete:
		delete(st.items, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": fmt.Sprintf("Method %q not allowed.", r.Method)})
	}
}

// listPage builds the { next, previous, results, offset, limit, count } envelope.
func listPage(r *http.Request, cfg Config, col Collection, st *store) map[string]any {
	q := r.URL.Query()
	offset := asInt(q.Get("offset"))
	limit := asInt(q.Get("limit"))
	if limit <= 0 {
		limit = cfg.PageSize
	}

	ids := make([]int, 0, len(st.items))
	for id, it := range st.items {
		if matches(it, col.Search, q.Get("search")) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	total := len(ids)
	start := min(offset, total)
	end := min(start+limit, total)

	results := make([]any, 0, end-start)
	for _, id := range ids[start:end] {
		results = append(results, st.items[id])
	}

	link := func(off int) any {
		u := *r.URL
		u.Scheme, u.Host = "http", r.Host
		v := u.Query()
		v.Set("offset", strconv.Itoa(off))
		v.Set("limit", strconv.Itoa(limit))
		u.RawQuery = v.Encode()
		return u.String()
	}

	page := map[string]any{
		"next":     nil,
		"previous": nil,
		"results":  results,
		"offset":   start,
		"limit":    limit,
		"count":    total,
	}
	if end < total {
		page["next"] = link(end)
	}
	if start > 0 {
		page["previous"] = link(max(start-limit, 0))
	}
	return page
}

// matches reports whether any search field of it contains term.
func matches(it map[string]any, fields []string, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if s, ok := it[f].(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// decodeItem reads a JSON object body or answers 400.
func decodeItem(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var item map[string]any
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON object expected."})
		return nil, false
	}
	return item, true
}

// issueCSRF sets a fresh csrftoken cookie.
func issueCSRF(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	token := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{"csrftoken": token})
}

// validCSRF compares the csrftoken cookie with the X-CSRFToken header.
func validCSRF(r *http.Request) bool {
	c, err := r.Cookie("csrftoken")
	if err != nil || c.Value == "" {
		return false
	}
	return r.Header.Get("X-CSRFToken") == c.Value
}

// writeJSON writes v as a JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// applyRandomDelay sleeps for a random duration between minMs and maxMs.
func applyRandomDelay(minMs, maxMs int) {
	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	delta := mrand.Intn(maxMs-minMs) + minMs
	time.Sleep(time.Duration(delta) * time.Millisecond)
}

// logRequest logs method, path, query, headers and optionally the JSON body.
func logRequest(r *http.Request, logBody bool) {
	redacted := http.Header{}
	for k, vv := range r.Header {
		if strings.EqualFold(k, "Cookie") || strings.EqualFold(k, "X-CSRFToken") {
			redacted[k] = []string{"<redacted>"}
		} else {
			redacted[k] = vv
		}
	}

	var bodyPreview string
	if logBody && r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		bodyPreview = string(b)
		r.Body = io.NopCloser(strings.NewReader(bodyPreview))
	}

	log.Printf("REQ %s %s?%s headers=%v body=%s",
		r.Method, r.URL.Path, r.URL.RawQuery, redacted, truncate(bodyPreview, 2048))
}

// asInt converts numeric JSON values to a non-negative int.
func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return max(t, 0)
	case float64:
		return max(int(t), 0)
	case string:
		n, _ := strconv.Atoi(t)
		return max(n, 0)
	default:
		return 0
	}
}

// truncate returns at most n bytes of s.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
