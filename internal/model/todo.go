package model

import "time"

// TodoStatus はTodoの状態を表す。
type TodoStatus string

const (
	// TodoStatusPending は未完了状態。作成時のデフォルト。
	TodoStatusPending TodoStatus = "pending"
	// TodoStatusCompleted は完了状態。
	TodoStatusCompleted TodoStatus = "completed"
)

// IsValid は定義済みの状態かどうかを判定する。
func (s TodoStatus) IsValid() bool {
	return s == TodoStatusPending || s == TodoStatusCompleted
}

// Todo はユーザーが所有するTodoを表す。
// UserIDは作成時に設定され、以後変更されない。
type Todo struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	Status      TodoStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID はTodoの所有者のユーザーIDを返す。
func (t *Todo) OwnerID() string {
	return t.UserID
}

// TodoStatusFilter は一覧取得時の状態フィルタ。
type TodoStatusFilter string

const (
	TodoFilterAll       TodoStatusFilter = "all"
	TodoFilterPending   TodoStatusFilter = "pending"
	TodoFilterCompleted TodoStatusFilter = "completed"
)

// TodoSortField は一覧取得時のソートキー。
type TodoSortField string

const (
	TodoSortCreatedAt TodoSortField = "createdAt"
	TodoSortUpdatedAt TodoSortField = "updatedAt"
)

// SortOrder はソート順。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TodoFilter はTodo一覧取得の条件を表す。
type TodoFilter struct {
	Status TodoStatusFilter
	Sort   TodoSortField
	Order  SortOrder
}

// DefaultTodoFilter は全件・作成日時降順のフィルタを返す。
func DefaultTodoFilter() TodoFilter {
	return TodoFilter{
		Status: TodoFilterAll,
		Sort:   TodoSortCreatedAt,
		Order:  SortDesc,
	}
}
