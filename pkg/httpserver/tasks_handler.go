package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"tradesim/internal/taskstore"
	"tradesim/pkg/types"
)

// taskHandler serves task CRUD and run control.
type taskHandler struct {
	store  *taskstore.Store
	runner TaskRunner
	logger *zap.Logger
}

func newTaskHandler(store *taskstore.Store, runner TaskRunner, logger *zap.Logger) *taskHandler {
	return &taskHandler{store: store, runner: runner, logger: logger}
}

func (h *taskHandler) list(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list tasks", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list tasks")
		return
	}
	if tasks == nil {
		tasks = []*types.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *taskHandler) create(w http.ResponseWriter, r *http.Request) {
	var task types.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "decode task: "+err.Error())
		return
	}

	// Runtime fields are owned by the run lifecycle, not the caller.
	task.IsRunning = false
	task.ResultID = ""

	fresh, err := h.store.NewTask(r.Context())
	if err != nil {
		h.logger.Error("allocate task id", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "allocate task id")
		return
	}
	task.ID = fresh.ID

	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Save(r.Context(), &task); err != nil {
		h.saveError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &task)
}

func (h *taskHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.loadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (h *taskHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	existing, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.loadError(w, err)
		return
	}
	if existing.IsRunning {
		respondError(w, http.StatusConflict, types.ErrTaskRunning.Error())
		return
	}

	var task types.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "decode task: "+err.Error())
		return
	}
	task.ID = id
	task.IsRunning = false
	task.ResultID = existing.ResultID

	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Save(r.Context(), &task); err != nil {
		h.saveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &task)
}

func (h *taskHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.loadError(w, err)
		return
	}
	if task.IsRunning {
		respondError(w, http.StatusConflict, types.ErrTaskRunning.Error())
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.loadError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *taskHandler) start(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.runner.Start(r.Context(), id); err != nil {
		h.runError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "started"})
}

func (h *taskHandler) stop(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.runner.Stop(r.Context(), id); err != nil {
		h.runError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "stopping"})
}

func (h *taskHandler) loadError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrNotFound) {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	h.logger.Error("task store", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "task store")
}

func (h *taskHandler) saveError(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrDuplicateKey) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.logger.Error("save task", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "save task")
}

func (h *taskHandler) runError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		respondError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, types.ErrTaskRunning), errors.Is(err, types.ErrTaskNotRunning):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("run control", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// taskID parses the {id} route parameter, answering 400 itself on garbage.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}
