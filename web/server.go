// ABOUTME: REST facade over the replication engine for third-party integrations
// ABOUTME: Generic per-table pass-through plus API-key-guarded accounting and occupancy reads
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lodgekit/lodgekit/models"
	"github.com/lodgekit/lodgekit/sync"
)

// Server exposes the engine's collections over HTTP. It is a downstream
// consumer of the sync layer: reads come from the local store, writes go
// through the engine so they mirror and refresh like any front-desk action.
type Server struct {
	engine *sync.Engine
	log    zerolog.Logger
	tables map[string]bool
}

func NewServer(engine *sync.Engine, log zerolog.Logger) *Server {
	tables := make(map[string]bool)
	for _, c := range models.BootstrapOrder() {
		tables[c] = true
	}
	return &Server{
		engine: engine,
		log:    log.With().Str("component", "web").Logger(),
		tables: tables,
	}
}

// Handler returns the route mux, exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/external/accounting", s.requireAPIKey(s.handleAccounting))
	mux.HandleFunc("/api/external/occupancy", s.requireAPIKey(s.handleOccupancy))
	mux.HandleFunc("/api/", s.handleTable)
	return mux
}

// Start blocks serving the facade on addr.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting REST facade")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pending, _ := s.engine.PendingCount()
	writeJSON(w, http.StatusOK, map[string]any{
		"cloud_enabled": s.engine.Bridge().Enabled(),
		"cloud_online":  s.engine.Bridge().Online(),
		"pending_sync":  pending,
	})
}

// handleTable implements GET/POST /api/{table}: list a collection, or upsert
// one record (object body) or many (array body) through the engine.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	table := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	if table == "" || strings.Contains(table, "/") {
		http.NotFound(w, r)
		return
	}
	if !s.tables[table] {
		httpError(w, http.StatusNotFound, fmt.Sprintf("unknown table %q", table))
		return
	}

	switch r.Method {
	case http.MethodGet:
		records, err := s.engine.GetAll(r.Context(), table)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, records)

	case http.MethodPost:
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			httpError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		records, err := decodeRecords(raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, rec := range records {
			if rec.ID() == "" {
				rec["id"] = models.NewID()
			}
			if err := s.engine.Put(r.Context(), table, rec); err != nil {
				httpError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, records)

	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// requireAPIKey guards the external read-only endpoints with the static key
// stored in the settings record. No key configured means the endpoints are
// closed, not open.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := s.engine.State().Settings().APIKey
		if key == "" || r.Header.Get("X-API-Key") != key {
			httpError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	}
}

// handleAccounting summarizes transactions for the accounting integration.
func (s *Server) handleAccounting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txns := s.engine.State().Transactions()
	var charges, payments int64
	byKind := make(map[string]int64)
	for _, t := range txns {
		byKind[t.Kind] += t.Amount
		switch t.Kind {
		case models.TxnPayment:
			payments += t.Amount
		case models.TxnRefund:
			payments -= t.Amount
		default:
			charges += t.Amount
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions":   txns,
		"total_charges":  charges,
		"total_payments": payments,
		"by_kind":        byKind,
	})
}

// handleOccupancy reports the room grid for channel/occupancy consumers.
func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms := s.engine.State().Rooms()
	byStatus := make(map[string]int)
	occupied := 0
	for _, room := range rooms {
		byStatus[room.Status]++
		if room.Status == models.RoomOccupied {
			occupied++
		}
	}

	rate := 0.0
	if len(rooms) > 0 {
		rate = float64(occupied) / float64(len(rooms))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":          rooms,
		"total_rooms":    len(rooms),
		"occupied":       occupied,
		"occupancy_rate": rate,
		"by_status":      byStatus,
	})
}

func decodeRecords(raw json.RawMessage) ([]models.Record, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var records []models.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("invalid record array: %w", err)
		}
		return records, nil
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return []models.Record{rec}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
