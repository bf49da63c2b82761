package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/anishesg/internship-discord-bot/internal/detector"
	"github.com/anishesg/internship-discord-bot/internal/leaderboard"
	"github.com/anishesg/internship-discord-bot/internal/models"
)

// Poller is the detector surface the API needs: an on-demand poll and the
// last-parse snapshot for query commands.
type Poller interface {
	Poll(ctx context.Context) (int, error)
	Snapshot() []models.Listing
	LastPolledAt() time.Time
}

// TaskParser turns free text into task drafts; a nil parser is valid (the
// API then only accepts structured task lists).
type TaskParser interface {
	ParseTasks(ctx context.Context, text string) []models.Task
}

// Ledger is the mutation surface the command handlers call.
type Ledger interface {
	GetOrCreate(ctx context.Context, userID, username string) (*models.User, error)
	SetTasks(ctx context.Context, userID, username, date string, drafts []models.Task) (*models.TaskDay, error)
	GetTasks(ctx context.Context, userID, date string) (*models.TaskDay, error)
	CompleteTask(ctx context.Context, userID, date, taskID string) (*models.Task, error)
	UncompleteTask(ctx context.Context, userID, date, taskID string) (*models.Task, error)
	JoinTeam(ctx context.Context, userID, username, teamID, teamName string) (*models.Team, error)
	LeaveTeam(ctx context.Context, userID string) error
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
}

// Server wires the chat-command surface onto the core operations.
type Server struct {
	poller     Poller
	ledger     Ledger
	boards     *leaderboard.Aggregator
	taskParser TaskParser
}

func New(poller Poller, ledger Ledger, boards *leaderboard.Aggregator, taskParser TaskParser) *Server {
	return &Server{poller: poller, ledger: ledger, boards: boards, taskParser: taskParser}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/poll", s.handlePoll).Methods(http.MethodPost)
	r.HandleFunc("/listings", s.handleListings).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/tasks/{date}", s.handleSetTasks).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/tasks/{date}", s.handleGetTasks).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/tasks/{date}/{taskID}/complete", s.handleComplete).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/tasks/{date}/{taskID}/uncomplete", s.handleUncomplete).Methods(http.MethodPost)
	r.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/teams", s.handleTeamLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/teams/{id}", s.handleGetTeam).Methods(http.MethodGet)
	r.HandleFunc("/teams/{id}/join", s.handleJoinTeam).Methods(http.MethodPost)
	r.HandleFunc("/teams/{id}/leave", s.handleLeaveTeam).Methods(http.MethodPost)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"lastPolledAt": s.poller.LastPolledAt(),
	})
}

// handlePoll triggers an on-demand poll. A poll already in flight yields 429
// rather than running concurrently.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	newCount, err := s.poller.Poll(r.Context())
	if errors.Is(err, detector.ErrPollInFlight) {
		writeError(w, http.StatusTooManyRequests, "A poll is already running, try again in a moment.")
		return
	}
	if err != nil {
		slog.Error("On-demand poll failed", "error", err)
		writeError(w, http.StatusBadGateway, "Sorry, the listings source could not be checked right now.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"new": newCount})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings := s.poller.Snapshot()

	if categoryParam := r.URL.Query().Get("category"); categoryParam != "" {
		category, ok := models.ParseCategory(categoryParam)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown category.")
			return
		}
		listings = filterListings(listings, func(l models.Listing) bool { return l.Category == category })
	}
	if q := r.URL.Query().Get("q"); q != "" {
		listings = searchListings(listings, q)
	}
	if limit := queryInt(r, "limit", 25); limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings, "count": len(listings)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	user, err := s.ledger.GetOrCreate(r.Context(), userID, r.URL.Query().Get("username"))
	if err != nil {
		internalError(w, "load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type setTasksRequest struct {
	Username string        `json:"username,omitempty"`
	Text     string        `json:"text,omitempty"`
	Tasks    []models.Task `json:"tasks,omitempty"`
}

// handleSetTasks replaces the task list for (user, date). The body carries
// either free text for the task parser or an explicit task list.
func (s *Server) handleSetTasks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, date := vars["id"], vars["date"]
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "Date must look like 2026-01-31.")
		return
	}

	var req setTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Could not read the task list.")
		return
	}

	drafts := req.Tasks
	if len(drafts) == 0 && req.Text != "" && s.taskParser != nil {
		drafts = s.taskParser.ParseTasks(r.Context(), req.Text)
	}
	if len(drafts) == 0 {
		writeError(w, http.StatusBadRequest, "No tasks found in the request.")
		return
	}

	day, err := s.ledger.SetTasks(r.Context(), userID, req.Username, date, drafts)
	if err != nil {
		internalError(w, "set tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := s.ledger.GetTasks(r.Context(), vars["id"], vars["date"])
	if err != nil {
		internalError(w, "get tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.toggleTask(w, r, s.ledger.CompleteTask)
}

func (s *Server) handleUncomplete(w http.ResponseWriter, r *http.Request) {
	s.toggleTask(w, r, s.ledger.UncompleteTask)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string, string) (*models.Task, error)) {
	vars := mux.Vars(r)
	task, err := op(r.Context(), vars["id"], vars["date"], vars["taskID"])
	if errors.Is(err, models.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "That task does not exist for this date.")
		return
	}
	if err != nil {
		internalError(w, "toggle task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetricParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown leaderboard metric.")
		return
	}
	entries, err := s.boards.Rank(r.Context(), metric, queryInt(r, "limit", 10))
	if err != nil {
		internalError(w, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": metric, "entries": entries})
}

func (s *Server) handleTeamLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetricParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown leaderboard metric.")
		return
	}
	entries, err := s.boards.RankTeams(r.Context(), metric, queryInt(r, "limit", 10))
	if err != nil {
		internalError(w, "team leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": metric, "entries": entries})
}

type teamRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	TeamName string `json:"teamName,omitempty"`
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.ledger.GetTeam(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, models.ErrTeamNotFound) {
		writeError(w, http.StatusNotFound, "No team with that id.")
		return
	}
	if err != nil {
		internalError(w, "get team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleJoinTeam(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["id"]
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "A userId is required to join a team.")
		return
	}
	team, err := s.ledger.JoinTeam(r.Context(), req.UserID, req.Username, teamID, req.TeamName)
	if err != nil {
		internalError(w, "join team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "A userId is required to leave a team.")
		return
	}
	if err := s.ledger.LeaveTeam(r.Context(), req.UserID); err != nil {
		internalError(w, "leave team", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"left": true})
}
