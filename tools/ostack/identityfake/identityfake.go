// Package identityfake is an in-process Keystone double serving the Identity v2
// and v3 password authentication endpoints.
package identityfake

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Endpoint is one region's URLs of a Service. Empty URLs are omitted.
type Endpoint struct {
	Region      string
	PublicURL   string
	InternalURL string
	AdminURL    string
}

// Service is a catalog entry served to every authenticated user.
type Service struct {
	Name      string
	Type      string
	Endpoints []Endpoint
}

type user struct {
	password   string
	tenantID   string
	tenantName string
}

// Server authenticates known users and hands out the configured catalog.
type Server struct {
	mu       sync.Mutex
	users    map[string]user
	services []Service
	tokenTTL time.Duration
	requests int
	router   chi.Router
}

func New(services ...Service) *Server {
	s := &Server{
		users:    map[string]user{},
		services: services,
		tokenTTL: time.Hour,
	}
	r := chi.NewRouter()
	r.Post("/tokens", s.handleV2)
	r.Post("/v2.0/tokens", s.handleV2)
	r.Post("/auth/tokens", s.handleV3)
	r.Post("/v3/auth/tokens", s.handleV3)
	s.router = r
	return s
}

// AddUser registers a user allowed to scope to the given tenant.
func (s *Server) AddUser(username, password, tenantID, tenantName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{password: password, tenantID: tenantID, tenantName: tenantName}
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// Requests is the number of authentication requests received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) check(username, password, tenantID, tenantName string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	u, ok := s.users[username]
	if !ok || u.password != password {
		return 0, false
	}
	if tenantID != "" && tenantID != u.tenantID {
		return 0, false
	}
	if tenantName != "" && tenantName != u.tenantName {
		return 0, false
	}
	return s.tokenTTL, true
}

func (s *Server) handleV2(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Auth struct {
			PasswordCredentials struct {
				Username string `json:"username"`
				Password string `json:"password"`
			} `json:"passwordCredentials"`
			TenantID   string `json:"tenantId"`
			TenantName string `json:"tenantName"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	pc := req.Auth.PasswordCredentials
	ttl, ok := s.check(pc.Username, pc.Password, req.Auth.TenantID, req.Auth.TenantName)
	if !ok {
		writeError(w, http.StatusUnauthorized, "The request you have made requires authentication.")
		return
	}
	now := time.Now().UTC()
	catalog := make([]map[string]any, 0, len(s.services))
	for _, svc := range s.services {
		eps := make([]map[string]string, 0, len(svc.Endpoints))
		for _, ep := range svc.Endpoints {
			m := map[string]string{"region": ep.Region, "id": uuid.NewString()}
			putNonEmpty(m, "publicURL", ep.PublicURL)
			putNonEmpty(m, "internalURL", ep.InternalURL)
			putNonEmpty(m, "adminURL", ep.AdminURL)
			eps = append(eps, m)
		}
		catalog = append(catalog, map[string]any{"name": svc.Name, "type": svc.Type, "endpoints": eps})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access": map[string]any{
			"token": map[string]any{
				"id":        uuid.NewString(),
				"issued_at": now.Format("2006-01-02T15:04:05.000000"),
				"expires":   now.Add(ttl).Format(time.RFC3339Nano),
				"tenant":    map[string]string{"id": req.Auth.TenantID, "name": req.Auth.TenantName},
			},
			"serviceCatalog": catalog,
		},
	})
}

func (s *Server) handleV3(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Auth struct {
			Identity struct {
				Password struct {
					User struct {
						Name     string `json:"name"`
						Password string `json:"password"`
					} `json:"user"`
				} `json:"password"`
			} `json:"identity"`
			Scope struct {
				Project struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"project"`
			} `json:"scope"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	u := req.Auth.Identity.Password.User
	p := req.Auth.Scope.Project
	ttl, ok := s.check(u.Name, u.Password, p.ID, p.Name)
	if !ok {
		writeError(w, http.StatusUnauthorized, "The request you have made requires authentication.")
		return
	}
	now := time.Now().UTC()
	catalog := make([]map[string]any, 0, len(s.services))
	for _, svc := range s.services {
		eps := []map[string]string{}
		for _, ep := range svc.Endpoints {
			for _, iface := range []struct{ name, url string }{
				{"public", ep.PublicURL}, {"internal", ep.InternalURL}, {"admin", ep.AdminURL},
			} {
				if iface.url == "" {
					continue
				}
				eps = append(eps, map[string]string{
					"id": uuid.NewString(), "interface": iface.name, "region": ep.Region, "region_id": ep.Region, "url": iface.url,
				})
			}
		}
		catalog = append(catalog, map[string]any{"id": uuid.NewString(), "name": svc.Name, "type": svc.Type, "endpoints": eps})
	}
	w.Header().Set("X-Subject-Token", uuid.NewString())
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": map[string]any{
			"methods":    []string{"password"},
			"issued_at":  now.Format(time.RFC3339Nano),
			"expires_at": now.Add(ttl).Format(time.RFC3339Nano),
			"catalog":    catalog,
		},
	})
}

func putNonEmpty(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}
