// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/todoman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// emailには一意制約があり、違反時はDuplicateEmail種別のエラーを返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// 同じemailのユーザーが既に存在する場合はmodel.NewDuplicateEmailError()を返す。
	Create(ctx context.Context, user *model.User) error
}

// TodoRepository はTodoデータの永続化インターフェース。
// 所有者の検証は行わない。呼び出し側（todo.Service）が認可ガードで検証する。
type TodoRepository interface {
	// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Todo, error)

	// ListByUserID はユーザーのTodo一覧をフィルタ・ソート条件に従って返す。
	ListByUserID(ctx context.Context, userID string, filter model.TodoFilter) ([]*model.Todo, error)

	// Create はTodoを作成する。
	Create(ctx context.Context, todo *model.Todo) error

	// Update はTodoのtitle、description、status、updated_atを上書き更新する。
	// id、user_id、created_atは変更しない。
	Update(ctx context.Context, todo *model.Todo) error

	// Delete は指定IDのTodoを削除する。
	Delete(ctx context.Context, id string) error
}
