// Command sampleserver serves the endpoints exercised by the benchmarks under
// examples/.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	userCounter  atomic.Int64
	orderCounter atomic.Int64
)

func main() {
	port := flag.Int("port", 9000, "Listening port")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	log.Fatal(runHTTPServer(*port))
}

func runHTTPServer(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/users", handleUsers)
	mux.HandleFunc("/api/users/", handleUserByID)
	mux.HandleFunc("/api/organizations", handleOrganizations)
	mux.HandleFunc("/api/account", handleAccount)
	mux.HandleFunc("/api/orders", handleOrders)
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("sample HTTP server listening on %s", addr)
	return http.ListenAndServe(addr, withLatency(mux))
}

// withLatency sleeps for the number of milliseconds in the "delay" query
// parameter before serving.
func withLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ms, err := strconv.Atoi(r.URL.Query().Get("delay")); err == nil && ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		next.ServeHTTP(w, r)
	})
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	var creds struct {
		User string `json:"user"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-" + creds.User})
	respondJSON(w, http.StatusOK, map[string]any{
		"user":  creds.User,
		"token": fmt.Sprintf("token-%s-%d", creds.User, time.Now().UnixNano()),
	})
}

func handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		id := userCounter.Add(1)
		respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": fmt.Sprintf("User %d", id)})
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]any{{"id": 1, "name": "User 1"}, {"id": 2, "name": "User 2"}},
			"total": 2,
		})
	default:
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/users/"))
	if err != nil {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "name": fmt.Sprintf("User %d", id)})
}

func handleOrganizations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Acme"}, {"id": 2, "name": "Globex"}})
}

func handleAccount(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		respondJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing token"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"plan": "pro", "session": cookieValue(r, "session")})
}

func handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		id := orderCounter.Add(1)
		respondJSON(w, http.StatusCreated, map[string]any{"id": id, "status": "pending"})
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]any{
			"page":   r.URL.Query().Get("page"),
			"orders": []map[string]any{{"id": 1, "status": "completed"}},
		})
	default:
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[strings.ToLower(key)] = r.Header.Get(key)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"headers": headers,
		"body":    string(body),
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
