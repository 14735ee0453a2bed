// Package todo はユーザーが所有するTodoのドメインロジックを提供する。
// 個別のTodoに対する操作はすべてauthz.Authorizeを通し、
// 存在しないTodoにはNotFound、他ユーザーのTodoにはForbiddenを返す。
package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/authz"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/security"
	"github.com/hitoshi/todoman/internal/validation"
)


// Todo操作の種別ラベル
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OperationRecorder はTodoの変更操作を記録するインターフェース。
// metrics.Collectorが実装する。
type OperationRecorder interface {
	RecordTodoOperation(operation string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTodoOperation(string) {}

// CreateInput はTodo作成の入力。
type CreateInput struct {
	Title       string
	Description *string
}

// UpdateInput はTodo更新の入力。nilのフィールドは変更しない。
// Descriptionに空文字列を指定すると説明を削除する。
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *model.TodoStatus
}

// ListResult はTodo一覧の取得結果。
type ListResult struct {
	Todos []*model.Todo
	Count int
}

// Service はTodoのサービス層。
type Service struct {
	todoRepo  repository.TodoRepository
	sanitizer security.TextSanitizer
	recorder  OperationRecorder
	now       func() time.Time
}

// NewService はServiceを生成する。
// recorderがnilの場合は操作を記録しない。
func NewService(todoRepo repository.TodoRepository, sanitizer security.TextSanitizer, recorder OperationRecorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		todoRepo:  todoRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// List はユーザーのTodo一覧を返す。
func (s *Service) List(ctx context.Context, userID string, filter model.TodoFilter) (*ListResult, error) {
	todos, err := s.todoRepo.ListByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	return &ListResult{Todos: todos, Count: len(todos)}, nil
}

// Get は指定IDのTodoを返す。
func (s *Service) Get(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	return s.authorized(ctx, userID, todoID)
}

// Create はTodoを作成する。状態はpendingで作成される。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Todo, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if err := validation.Title(title); err != nil {
		return nil, err
	}
	description, err := s.description(input.Description)
	if err != nil {
		return nil, err
	}

	now := s.now()
	todo := &model.Todo{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      model.TodoStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("Todoの作成に失敗しました: %w", err)
	}
	s.recorder.RecordTodoOperation(OpCreate)
	return todo, nil
}

// Update はTodoの指定されたフィールドを更新する。
// 入力の検証は所有者確認より前に行う。
func (s *Service) Update(ctx context.Context, userID, todoID string, input UpdateInput) (*model.Todo, error) {
	var title string
	if input.Title != nil {
		title = s.sanitizer.Sanitize(*input.Title)
		if err := validation.Title(title); err != nil {
			return nil, err
		}
	}
	description, err := s.description(input.Description)
	if err != nil {
		return nil, err
	}
	if input.Status != nil {
		if err := validation.Status(*input.Status); err != nil {
			return nil, err
		}
	}

	todo, err := s.authorized(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		todo.Title = title
	}
	if input.Description != nil {
		todo.Description = description
	}
	if input.Status != nil {
		todo.Status = *input.Status
	}
	todo.UpdatedAt = nextUpdatedAt(todo.UpdatedAt, s.now())

	if err := s.todoRepo.Update(ctx, todo); err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("Todoの更新に失敗しました: %w", err)
	}
	s.recorder.RecordTodoOperation(OpUpdate)
	return todo, nil
}

// Delete はTodoを削除する。
func (s *Service) Delete(ctx context.Context, userID, todoID string) error {
	if _, err := s.authorized(ctx, userID, todoID); err != nil {
		return err
	}
	if err := s.todoRepo.Delete(ctx, todoID); err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return err
		}
		return fmt.Errorf("Todoの削除に失敗しました: %w", err)
	}
	s.recorder.RecordTodoOperation(OpDelete)
	return nil
}

// authorized はTodoを取得し、存在確認と所有者確認を行う。
func (s *Service) authorized(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return nil, fmt.Errorf("Todoの取得に失敗しました: %w", err)
	}
	return authz.Authorize(todo, model.NewTodoNotFoundError(todoID), userID)
}

// description は説明文をサニタイズして検証する。空になった場合はnilを返す。
func (s *Service) description(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	cleaned := s.sanitizer.Sanitize(*raw)
	if err := validation.Description(cleaned); err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, nil
	}
	return &cleaned, nil
}

// nextUpdatedAt は更新後のupdatedAtを返す。
// 時計の分解能が粗くても前回値より必ず後になる。PostgreSQLの精度に合わせてマイクロ秒単位で進める。
func nextUpdatedAt(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
