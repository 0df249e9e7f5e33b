package http

import (
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var (
		goals []services.GoalWithProgress
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		goals, err = s.goals.ListActiveGoals(r.Context(), uid)
	} else {
		goals, err = s.goals.ListGoals(r.Context(), uid)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		writeServiceError(w, core.ErrInvalidTarget)
		return
	}

	var current int64
	if strings.TrimSpace(req.Current) != "" {
		current, err = core.ParseNonNegativeCents(req.Current)
		if err != nil {
			writeServiceError(w, core.ErrInvalidCurrent)
			return
		}
	}

	goal := core.SavingsGoal{
		UserID:   userID(r),
		Name:     strings.TrimSpace(req.Name),
		Target:   core.Money{Cents: target},
		Current:  core.Money{Cents: current},
		Deadline: req.Deadline,
	}

	created, err := s.goals.CreateGoal(r.Context(), goal)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Goal created",
		log.FieldUserID, created.Goal.UserID,
		log.FieldGoalID, created.Goal.ID,
		log.FieldGoalName, created.Goal.Name)
	writeJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := s.goals.GetGoal(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := storage.UpdateGoalParams{
		ID:            id,
		UserID:        userID(r),
		ClearDeadline: req.ClearDeadline,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		params.Name = &name
	}
	if req.Target != nil {
		cents, err := core.ParseDecimalToCents(*req.Target)
		if err != nil {
			writeServiceError(w, core.ErrInvalidTarget)
			return
		}
		params.Target = &core.Money{Cents: cents}
	}
	if req.Current != nil {
		cents, err := core.ParseNonNegativeCents(*req.Current)
		if err != nil {
			writeServiceError(w, core.ErrInvalidCurrent)
			return
		}
		params.Current = &core.Money{Cents: cents}
	}
	if req.Deadline != nil {
		params.Deadline = req.Deadline
	}

	updated, err := s.goals.UpdateGoal(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleSetGoalActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.goals.SetGoalActive(r.Context(), userID(r), id, req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.goals.DeleteGoal(r.Context(), userID(r), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
