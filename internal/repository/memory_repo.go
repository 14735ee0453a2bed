package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/todoman/internal/model"
)

// MemoryUserRepo はプロセス内メモリを使用したユーザーリポジトリ。
// テストおよびPostgreSQLを用意できない開発環境向け。
// emailの一意性は書き込み時にロック内で保証する。
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

// FindByID は指定IDのユーザーのコピーを返す。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// FindByEmail はメールアドレスでユーザーのコピーを返す。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

// Create はユーザーを保存する。emailが既に存在する場合はDuplicateEmailを返す。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return model.NewDuplicateEmailError()
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[user.Email] = user.ID
	return nil
}

// MemoryTodoRepo はプロセス内メモリを使用したTodoリポジトリ。
type MemoryTodoRepo struct {
	mu    sync.RWMutex
	todos map[string]*model.Todo
}

// NewMemoryTodoRepo はMemoryTodoRepoを生成する。
func NewMemoryTodoRepo() *MemoryTodoRepo {
	return &MemoryTodoRepo{
		todos: make(map[string]*model.Todo),
	}
}

func copyTodo(t *model.Todo) *model.Todo {
	cp := *t
	if t.Description != nil {
		d := *t.Description
		cp.Description = &d
	}
	return &cp
}

// FindByID は指定IDのTodoのコピーを返す。見つからない場合はnilを返す。
func (r *MemoryTodoRepo) FindByID(_ context.Context, id string) (*model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.todos[id]
	if !ok {
		return nil, nil
	}
	return copyTodo(t), nil
}

// ListByUserID はユーザーのTodo一覧をフィルタ・ソート条件に従って返す。
func (r *MemoryTodoRepo) ListByUserID(_ context.Context, userID string, filter model.TodoFilter) ([]*model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]*model.Todo, 0)
	for _, t := range r.todos {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && filter.Status != model.TodoFilterAll && string(t.Status) != string(filter.Status) {
			continue
		}
		todos = append(todos, copyTodo(t))
	}

	sort.Slice(todos, func(i, j int) bool {
		a, b := todos[i].CreatedAt, todos[j].CreatedAt
		if filter.Sort == model.TodoSortUpdatedAt {
			a, b = todos[i].UpdatedAt, todos[j].UpdatedAt
		}
		if a.Equal(b) {
			if filter.Order == model.SortAsc {
				return todos[i].ID < todos[j].ID
			}
			return todos[i].ID > todos[j].ID
		}
		if filter.Order == model.SortAsc {
			return a.Before(b)
		}
		return a.After(b)
	})

	return todos, nil
}

// Create はTodoを保存する。
func (r *MemoryTodoRepo) Create(_ context.Context, todo *model.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.todos[todo.ID] = copyTodo(todo)
	return nil
}

// Update はTodoの可変フィールドを更新する。
func (r *MemoryTodoRepo) Update(_ context.Context, todo *model.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.todos[todo.ID]
	if !ok {
		return model.NewTodoNotFoundError(todo.ID)
	}
	updated := copyTodo(todo)
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	r.todos[todo.ID] = updated
	return nil
}

// Delete は指定IDのTodoを削除する。
func (r *MemoryTodoRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return model.NewTodoNotFoundError(id)
	}
	delete(r.todos, id)
	return nil
}

// compile-time interface checks
var (
	_ UserRepository = (*MemoryUserRepo)(nil)
	_ TodoRepository = (*MemoryTodoRepo)(nil)
)
