package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/service"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/store"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	floor     *service.FloorService
	users     *service.UserService
}

func NewHandler(floor *service.FloorService, users *service.UserService) *Handler {
	return &Handler{
		floor: floor,
		users: users,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "floor service is running at port " + os.Getenv("FLOOR_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}

// targetPayload is the resolved drop or tap destination sent by the client.
// The client already picked the single winning zone by z-order.
type targetPayload struct {
	Kind  string `json:"kind"` // "table", "outing", "background", "none"
	Table int    `json:"table,omitempty"`
}

func (p targetPayload) toTarget() (board.Target, bool) {
	switch p.Kind {
	case "table":
		return board.Target{Kind: board.TargetTable, Table: p.Table}, true
	case "outing":
		return board.Target{Kind: board.TargetOuting}, true
	case "background":
		return board.Target{Kind: board.TargetBackground}, true
	case "none", "":
		return board.Target{Kind: board.TargetNone}, true
	}
	return board.Target{}, false
}

func (h *Handler) BoardHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.floor.Snapshot(r.Context())
	if err != nil {
		log.Errorf("Error building snapshot %s", err)
		h.CreateResponse(w, Response{Code: 500, Error: "could not build board snapshot"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Data: snapshot})
}

func (h *Handler) DropHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string        `json:"user_id"`
		Target targetPayload `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid drop payload"})
		return
	}

	target, ok := req.Target.toTarget()
	if !ok {
		h.CreateResponse(w, Response{Code: 400, Error: "unknown drop target"})
		return
	}

	// a failed remote write is not surfaced as an error banner: the board
	// snaps back on the next refetch
	if err := h.floor.DropUser(r.Context(), req.UserID, target); err != nil {
		log.Errorf("Error dropping user %s: %s", req.UserID, err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "drop processed"})
}

func (h *Handler) DragStartHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid drag payload"})
		return
	}

	if !h.floor.Interactions().BeginDrag(req.UserID) {
		h.CreateResponse(w, Response{Code: 409, Error: "another gesture is live"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "drag started"})
}

func (h *Handler) DragEndHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target targetPayload `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid drag payload"})
		return
	}

	target, ok := req.Target.toTarget()
	if !ok {
		h.CreateResponse(w, Response{Code: 400, Error: "unknown drop target"})
		return
	}

	if err := h.floor.EndDrag(r.Context(), target); err != nil {
		log.Errorf("Error ending drag: %s", err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "drag processed"})
}

func (h *Handler) ArmHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid arm payload"})
		return
	}
	h.floor.Interactions().Arm(req.UserID)
	h.CreateResponse(w, Response{Code: 200, Message: "user armed"})
}

func (h *Handler) DisarmHandler(w http.ResponseWriter, r *http.Request) {
	h.floor.Interactions().Disarm()
	h.CreateResponse(w, Response{Code: 200, Message: "selection cleared"})
}

func (h *Handler) TapHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target targetPayload `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid tap payload"})
		return
	}

	target, ok := req.Target.toTarget()
	if !ok {
		h.CreateResponse(w, Response{Code: 400, Error: "unknown tap target"})
		return
	}

	if err := h.floor.TapAssign(r.Context(), target); err != nil {
		log.Errorf("Error on tap assign: %s", err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "tap processed"})
}

func (h *Handler) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	tableNumber, ok := tableParam(r)
	if !ok {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid table number"})
		return
	}
	if err := h.floor.StartGame(r.Context(), tableNumber); err != nil {
		log.Errorf("Error starting game on table %d: %s", tableNumber, err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "game start processed"})
}

func (h *Handler) EndGameHandler(w http.ResponseWriter, r *http.Request) {
	tableNumber, ok := tableParam(r)
	if !ok {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid table number"})
		return
	}
	if err := h.floor.EndGame(r.Context(), tableNumber); err != nil {
		log.Errorf("Error ending game on table %d: %s", tableNumber, err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "game end processed"})
}

func (h *Handler) EndAllGamesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.floor.EndAllGames(r.Context()); err != nil {
		log.Errorf("Error ending all games: %s", err)
	}
	h.CreateResponse(w, Response{Code: 200, Message: "all games ended"})
}

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.floor.Snapshot(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: "could not load users"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Data: snapshot})
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.CreateResponse(w, Response{Code: 400, Error: "name is required"})
		return
	}

	user, err := h.users.Create(r.Context(), req.Name)
	if err != nil {
		log.Errorf("Error creating user %s", err)
		h.CreateResponse(w, Response{Code: 500, Error: "could not create user"})
		return
	}
	h.CreateResponse(w, Response{Code: 201, Data: user})
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.CreateResponse(w, Response{Code: 404, Error: "user not found"})
			return
		}
		log.Errorf("Error deleting user %s: %s", id, err)
		h.CreateResponse(w, Response{Code: 500, Error: "could not delete user"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "user deleted"})
}

func (h *Handler) ToggleOnlineHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.users.ToggleOnline(r.Context(), id)
	if err != nil {
		log.Errorf("Error toggling user %s: %s", id, err)
		h.CreateResponse(w, Response{Code: 500, Error: "could not toggle user"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Data: user})
}

func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "invalid status payload"})
		return
	}

	if err := h.users.SetStatus(r.Context(), id, status.Parse(req.Status).Kind); err != nil {
		h.CreateResponse(w, Response{Code: 400, Error: "status not settable"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Message: "status updated"})
}

func (h *Handler) CountsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.floor.Snapshot(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: 500, Error: "could not count users"})
		return
	}
	h.CreateResponse(w, Response{Code: 200, Data: snapshot.Counts})
}

func tableParam(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "tableNumber"))
	if err != nil || !status.ValidTable(n) {
		return 0, false
	}
	return n, true
}
