package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/domain"
)

// ─── Request / Response Types ───────────────────────────────────────────────

// profileResponse is a profile with optional inventory details.
type profileResponse struct {
	domain.Profile
	InventoryDetails *inventoryDetails `json:"inventoryDetails,omitempty"`
}

// inventoryDetails resolves owned ids against the catalog. Ids no longer in
// the catalog are returned with the id only.
type inventoryDetails struct {
	Badges []domain.Badge       `json:"badges"`
	Items  []domain.CatalogItem `json:"items"`
}

type leaderboardResponse struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

type eventsResponse struct {
	UserID string         `json:"userId"`
	Events []domain.Event `json:"events"`
}

// ─── Handlers ───────────────────────────────────────────────────────────────

func (s *Server) handleLogAction(w http.ResponseWriter, r *http.Request) {
	var req gamification.LogActionInput
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	p, err := s.svc.LogAction(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: p})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req gamification.PurchaseInput
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := s.svc.PurchaseVirtualItem(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := profileResponse{Profile: p}
	if expandInventory(r) {
		cat, err := s.catalog.Snapshot(r.Context())
		if err != nil {
			writeDomainError(w, r, domain.StorageError("catalog snapshot", err))
			return
		}
		resp.InventoryDetails = populateInventory(p.Inventory, cat)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	events, err := s.svc.ListEvents(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{UserID: userID, Events: events})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries, err := s.svc.GetLeaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, r, domain.StorageError("catalog snapshot", err))
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validationf("request body is empty")
		}
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Validationf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func expandInventory(r *http.Request) bool {
	for _, v := range strings.Split(r.URL.Query().Get("expand"), ",") {
		if strings.TrimSpace(v) == "inventory" {
			return true
		}
	}
	return false
}

func populateInventory(inv domain.Inventory, cat domain.Catalog) *inventoryDetails {
	out := &inventoryDetails{
		Badges: make([]domain.Badge, 0, len(inv.BadgesEarned)),
		Items:  make([]domain.CatalogItem, 0, len(inv.ItemsOwned)),
	}
	for _, id := range inv.BadgesEarned {
		b, ok := cat.Badge(id)
		if !ok {
			b = domain.Badge{ID: id}
		}
		out.Badges = append(out.Badges, b)
	}
	for _, id := range inv.ItemsOwned {
		it, ok := cat.Item(id)
		if !ok {
			it = domain.CatalogItem{ID: id}
		}
		out.Items = append(out.Items, it)
	}
	return out
}
