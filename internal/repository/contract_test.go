package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/todoman/internal/model"
)

// 実装に依存しないリポジトリの契約テスト。
// インメモリ実装とPostgreSQL実装の両方に適用する。

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newTestUser(email string) *model.User {
	now := testNow()
	return &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Name:         "Tester",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newTestTodo(userID, title string, createdAt time.Time) *model.Todo {
	return &model.Todo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Status:    model.TodoStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func runUserRepositoryContract(t *testing.T, repo UserRepository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		u := newTestUser("find-" + uuid.NewString() + "@example.com")
		require.NoError(t, repo.Create(ctx, u))

		byID, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, u.PasswordHash, byID.PasswordHash)
		assert.Equal(t, u.Name, byID.Name)
		assert.True(t, u.CreatedAt.Equal(byID.CreatedAt))

		byEmail, err := repo.FindByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		u, err := repo.FindByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, u)

		u, err = repo.FindByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("empty name round trips", func(t *testing.T) {
		u := newTestUser("noname-" + uuid.NewString() + "@example.com")
		u.Name = ""
		require.NoError(t, repo.Create(ctx, u))

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Name)
	})

	t.Run("duplicate email", func(t *testing.T) {
		email := "dup-" + uuid.NewString() + "@example.com"
		require.NoError(t, repo.Create(ctx, newTestUser(email)))

		err := repo.Create(ctx, newTestUser(email))
		require.Error(t, err)
		assert.True(t, model.IsKind(err, model.KindDuplicateEmail), "got %v", err)
	})

	t.Run("concurrent creates with same email", func(t *testing.T) {
		email := "race-" + uuid.NewString() + "@example.com"
		var wg sync.WaitGroup
		var ok, dup atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Create(ctx, newTestUser(email))
				switch {
				case err == nil:
					ok.Add(1)
				case model.IsKind(err, model.KindDuplicateEmail):
					dup.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(7), dup.Load())
	})
}

func runTodoRepositoryContract(t *testing.T, users UserRepository, todos TodoRepository) {
	ctx := context.Background()

	owner := newTestUser("owner-" + uuid.NewString() + "@example.com")
	other := newTestUser("other-" + uuid.NewString() + "@example.com")
	require.NoError(t, users.Create(ctx, owner))
	require.NoError(t, users.Create(ctx, other))

	base := testNow()

	t.Run("create and find", func(t *testing.T) {
		desc := "詳細"
		td := newTestTodo(owner.ID, "find", base)
		td.Description = &desc
		require.NoError(t, todos.Create(ctx, td))

		got, err := todos.FindByID(ctx, td.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, owner.ID, got.UserID)
		assert.Equal(t, "find", got.Title)
		require.NotNil(t, got.Description)
		assert.Equal(t, desc, *got.Description)
		assert.Equal(t, model.TodoStatusPending, got.Status)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		got, err := todos.FindByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list filters by owner and status and sorts", func(t *testing.T) {
		listUser := newTestUser("list-" + uuid.NewString() + "@example.com")
		require.NoError(t, users.Create(ctx, listUser))

		first := newTestTodo(listUser.ID, "first", base.Add(1*time.Second))
		second := newTestTodo(listUser.ID, "second", base.Add(2*time.Second))
		second.Status = model.TodoStatusCompleted
		third := newTestTodo(listUser.ID, "third", base.Add(3*time.Second))
		third.UpdatedAt = base.Add(10 * time.Second)
		for _, td := range []*model.Todo{first, second, third} {
			require.NoError(t, todos.Create(ctx, td))
		}
		require.NoError(t, todos.Create(ctx, newTestTodo(other.ID, "not mine", base)))

		titles := func(list []*model.Todo) []string {
			out := make([]string, len(list))
			for i, td := range list {
				out[i] = td.Title
			}
			return out
		}

		all, err := todos.ListByUserID(ctx, listUser.ID, model.DefaultTodoFilter())
		require.NoError(t, err)
		assert.Equal(t, []string{"third", "second", "first"}, titles(all))

		asc, err := todos.ListByUserID(ctx, listUser.ID, model.TodoFilter{
			Status: model.TodoFilterAll, Sort: model.TodoSortCreatedAt, Order: model.SortAsc,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, titles(asc))

		completed, err := todos.ListByUserID(ctx, listUser.ID, model.TodoFilter{
			Status: model.TodoFilterCompleted, Sort: model.TodoSortCreatedAt, Order: model.SortDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"second"}, titles(completed))

		byUpdated, err := todos.ListByUserID(ctx, listUser.ID, model.TodoFilter{
			Status: model.TodoFilterPending, Sort: model.TodoSortUpdatedAt, Order: model.SortDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"third", "first"}, titles(byUpdated))

		none, err := todos.ListByUserID(ctx, uuid.NewString(), model.DefaultTodoFilter())
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update keeps owner and createdAt", func(t *testing.T) {
		td := newTestTodo(owner.ID, "before", base)
		require.NoError(t, todos.Create(ctx, td))

		updated := *td
		updated.Title = "after"
		updated.Status = model.TodoStatusCompleted
		updated.UpdatedAt = base.Add(time.Minute)
		require.NoError(t, todos.Update(ctx, &updated))

		got, err := todos.FindByID(ctx, td.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Title)
		assert.Equal(t, model.TodoStatusCompleted, got.Status)
		assert.Equal(t, owner.ID, got.UserID)
		assert.True(t, got.CreatedAt.Equal(td.CreatedAt))
		assert.True(t, got.UpdatedAt.Equal(updated.UpdatedAt))
		assert.Nil(t, got.Description)
	})

	t.Run("update and delete missing", func(t *testing.T) {
		missing := newTestTodo(owner.ID, "ghost", base)
		err := todos.Update(ctx, missing)
		assert.True(t, model.IsKind(err, model.KindNotFound), "got %v", err)

		err = todos.Delete(ctx, missing.ID)
		assert.True(t, model.IsKind(err, model.KindNotFound), "got %v", err)
	})

	t.Run("delete", func(t *testing.T) {
		td := newTestTodo(owner.ID, "doomed", base)
		require.NoError(t, todos.Create(ctx, td))
		require.NoError(t, todos.Delete(ctx, td.ID))

		got, err := todos.FindByID(ctx, td.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
