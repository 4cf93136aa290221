package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitagent/backend/agent"
	"github.com/fitagent/backend/auth"
	"github.com/fitagent/backend/events"
	"github.com/fitagent/backend/supabase"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	goals, err := s.store.ListGoals(ctx, auth.Token(ctx), auth.UserID(ctx))
	if err != nil {
		s.logger.Error("listing goals failed", "user_id", auth.UserID(ctx), "error", err)
		respondError(w, storeStatus(err), "listing goals failed")
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

type createGoalRequest struct {
	Type        string   `json:"type"`
	TargetValue *float64 `json:"target_value,omitempty"`
	TargetDate  string   `json:"target_date,omitempty"`
}

type createGoalResponse struct {
	Goal  agent.Goal   `json:"goal"`
	Tasks []agent.Task `json:"tasks"`
}

// handleCreateGoal persists the goal and runs the generation pipeline in the
// same request. A thin plan is still a 201; the caller can regenerate
// through chat.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, userID := auth.Token(ctx), auth.UserID(ctx)

	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	goalType := strings.ToLower(strings.TrimSpace(req.Type))
	if goalType == "" {
		respondError(w, http.StatusBadRequest, "goal type is required")
		return
	}

	goal, err := s.store.CreateGoal(ctx, token, agent.Goal{
		UserID:      userID,
		Type:        goalType,
		TargetValue: req.TargetValue,
		TargetDate:  req.TargetDate,
		Status:      "active",
	})
	if err != nil {
		s.logger.Error("creating goal failed", "user_id", userID, "error", err)
		respondError(w, storeStatus(err), "creating goal failed")
		return
	}

	profile, err := s.store.GetProfile(ctx, token, userID)
	if err != nil {
		if !errors.Is(err, supabase.ErrNotFound) {
			s.logger.Warn("profile lookup failed, generating with empty profile", "user_id", userID, "error", err)
		}
		profile = agent.UserProfile{}
	}

	result := s.pipeline.Generate(ctx, profile, goal, nil)
	if len(result.Items) > 0 {
		if err := s.store.InsertTasks(ctx, token, userID, goal.ID, result.Items); err != nil {
			s.logger.Error("persisting generated tasks failed", "goal_id", goal.ID, "error", err)
			respondError(w, storeStatus(err), "persisting generated tasks failed")
			return
		}
	}

	s.publisher.Publish(events.SubjectTasksGenerated, events.TasksGenerated{
		UserID:    userID,
		GoalID:    goal.ID,
		GoalType:  goal.Type,
		TaskCount: len(result.Items),
		At:        time.Now().UTC(),
	})

	respondJSON(w, http.StatusCreated, createGoalResponse{Goal: goal, Tasks: result.Items})
}

func (s *Server) handleListGoalTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, userID := auth.Token(ctx), auth.UserID(ctx)
	goalID := chi.URLParam(r, "goalID")

	// Ownership check: the goal must be visible under the caller's token.
	if _, err := s.store.GetGoal(ctx, token, userID, goalID); err != nil {
		respondError(w, storeStatus(err), "goal not found")
		return
	}
	rows, err := s.store.ListTasks(ctx, token, goalID)
	if err != nil {
		s.logger.Error("listing tasks failed", "goal_id", goalID, "error", err)
		respondError(w, storeStatus(err), "listing tasks failed")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

var allowedTaskStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
	"skipped":     true,
}

type updateTaskRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !allowedTaskStatuses[status] {
		respondError(w, http.StatusBadRequest, "invalid task status")
		return
	}

	row, err := s.store.UpdateTaskStatus(ctx, auth.Token(ctx), auth.UserID(ctx), taskID, status)
	if err != nil {
		if !errors.Is(err, supabase.ErrNotFound) {
			s.logger.Error("updating task failed", "task_id", taskID, "error", err)
		}
		respondError(w, storeStatus(err), "updating task failed")
		return
	}
	respondJSON(w, http.StatusOK, row)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := s.store.GetProfile(ctx, auth.Token(ctx), auth.UserID(ctx))
	if err != nil {
		respondError(w, storeStatus(err), "profile not found")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var profile agent.UserProfile
	if err := decodeJSON(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	delete(profile, "id")
	delete(profile, "user_id")

	saved, err := s.store.UpsertProfile(ctx, auth.Token(ctx), auth.UserID(ctx), profile)
	if err != nil {
		s.logger.Error("profile upsert failed", "user_id", auth.UserID(ctx), "error", err)
		respondError(w, storeStatus(err), "saving profile failed")
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

type chatRequest struct {
	Message string  `json:"message"`
	GoalID  *string `json:"goal_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.coach.Chat(ctx, auth.Token(ctx), auth.UserID(ctx), req.GoalID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", "user_id", auth.UserID(ctx), "error", err)
		respondError(w, http.StatusBadGateway, "chat is unavailable right now")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type chatHistoryResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []agent.StoredMessage `json:"messages"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, userID := auth.Token(ctx), auth.UserID(ctx)

	var goalID *string
	if g := r.URL.Query().Get("goal_id"); g != "" {
		goalID = &g
	}

	conversationID, err := s.store.GetOrCreateConversation(ctx, token, userID, goalID)
	if err != nil {
		s.logger.Error("resolving conversation failed", "user_id", userID, "error", err)
		respondError(w, storeStatus(err), "loading chat history failed")
		return
	}
	messages, err := s.store.RecentMessages(ctx, token, conversationID, s.historyLimit)
	if err != nil {
		s.logger.Error("loading chat history failed", "conversation_id", conversationID, "error", err)
		respondError(w, storeStatus(err), "loading chat history failed")
		return
	}
	if messages == nil {
		messages = []agent.StoredMessage{}
	}
	respondJSON(w, http.StatusOK, chatHistoryResponse{ConversationID: conversationID, Messages: messages})
}
