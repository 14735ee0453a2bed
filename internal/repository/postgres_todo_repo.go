package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// todoSortColumns はソートキーからカラム名へのホワイトリスト。
var todoSortColumns = map[model.TodoSortField]string{
	model.TodoSortCreatedAt: "created_at",
	model.TodoSortUpdatedAt: "updated_at",
}

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (*model.Todo, error) {
	todo := &model.Todo{}
	var description sql.NullString
	if err := s.Scan(
		&todo.ID, &todo.UserID, &todo.Title, &description, &todo.Status, &todo.CreatedAt, &todo.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		d := description.String
		todo.Description = &d
	}
	return todo, nil
}

// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByID(ctx context.Context, id string) (*model.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, status, created_at, updated_at
		 FROM todos WHERE id = $1`,
		id,
	)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Todoの取得に失敗しました: %w", err)
	}
	return todo, nil
}

// ListByUserID はユーザーのTodo一覧を返す。
// ORDER BY句はホワイトリストから組み立てるため、入力値を直接埋め込まない。
func (r *PostgresTodoRepo) ListByUserID(ctx context.Context, userID string, filter model.TodoFilter) ([]*model.Todo, error) {
	column, ok := todoSortColumns[filter.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Order == model.SortAsc {
		direction = "ASC"
	}

	query := `SELECT id, user_id, title, description, status, created_at, updated_at
		 FROM todos WHERE user_id = $1`
	args := []any{userID}

	if filter.Status == model.TodoFilterPending || filter.Status == model.TodoFilterCompleted {
		query += ` AND status = $2`
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf(` ORDER BY %s %s, id %s`, column, direction, direction)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("Todo行の読み取りに失敗しました: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Todo一覧の走査に失敗しました: %w", err)
	}
	return todos, nil
}

// Create はTodoを作成する。
func (r *PostgresTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, title, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		todo.ID, todo.UserID, todo.Title, todo.Description, string(todo.Status), todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Todoの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はTodoの可変フィールドを更新する。
func (r *PostgresTodoRepo) Update(ctx context.Context, todo *model.Todo) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE todos SET title = $2, description = $3, status = $4, updated_at = $5
		 WHERE id = $1`,
		todo.ID, todo.Title, todo.Description, string(todo.Status), todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Todoの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTodoNotFoundError(todo.ID)
	}
	return nil
}

// Delete は指定IDのTodoを削除する。
func (r *PostgresTodoRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("Todoの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTodoNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
