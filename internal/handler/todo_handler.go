package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
	"github.com/hitoshi/todoman/internal/validation"
)

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	List(ctx context.Context, userID string, filter model.TodoFilter) (*todo.ListResult, error)
	Get(ctx context.Context, userID, todoID string) (*model.Todo, error)
	Create(ctx context.Context, userID string, input todo.CreateInput) (*model.Todo, error)
	Update(ctx context.Context, userID, todoID string, input todo.UpdateInput) (*model.Todo, error)
	Delete(ctx context.Context, userID, todoID string) error
}

// TodoHandler はTodo管理のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{service: service}
}

type createTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// updateTodoRequest は部分更新リクエスト。省略したフィールドは変更しない。
type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// todoResponse はTodoのAPIレスポンス。
type todoResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type todoListResponse struct {
	Todos []todoResponse `json:"todos"`
	Count int            `json:"count"`
}

func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// todoIDParam はURLのTodo IDを取り出す。UUID形式でない場合は存在しないTodoとして404を返す。
func todoIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTodoNotFoundError(id))
		return "", false
	}
	return id, true
}

// ListTodos はログインユーザーのTodo一覧を返す。
// GET /api/todos?status=&sort=&order=
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter, err := validation.TodoFilter(q.Get("status"), q.Get("sort"), q.Get("order"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := todoListResponse{
		Todos: make([]todoResponse, len(result.Todos)),
		Count: result.Count,
	}
	for i, t := range result.Todos {
		resp.Todos[i] = toTodoResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTodo はTodoを1件返す。
// GET /api/todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	todoID, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, todoID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(t))
}

// CreateTodo はTodoを作成する。
// POST /api/todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), userID, todo.CreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTodoResponse(t))
}

// UpdateTodo はTodoを部分更新する。
// PATCH /api/todos/{id}
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	todoID, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	var req updateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := todo.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := model.TodoStatus(*req.Status)
		input.Status = &status
	}

	t, err := h.service.Update(r.Context(), userID, todoID, input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(t))
}

// DeleteTodo はTodoを削除する。
// DELETE /api/todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	todoID, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, todoID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
