package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

type recordedEvents struct {
	mu     sync.Mutex
	signup []string
	login  []string
}

func (r *recordedEvents) RecordSignup(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signup = append(r.signup, outcome)
}

func (r *recordedEvents) RecordLogin(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.login = append(r.login, outcome)
}

// --- ヘルパー ---

func newTestService(t *testing.T, repo repository.UserRepository, recorder EventRecorder) (*Service, *TokenService) {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour, Issuer: "todoman"})
	require.NoError(t, err)
	return NewService(repo, NewPasswordHasher(bcrypt.MinCost), tokens, recorder), tokens
}

// --- Signup ---

func TestService_Signup_Success(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepo()
	events := &recordedEvents{}
	svc, tokens := newTestService(t, repo, events)

	result, err := svc.Signup(context.Background(), "  A@X.com ", "Passw0rd1", " Alice ")
	require.NoError(t, err)

	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, "Alice", result.User.Name)
	assert.Empty(t, result.User.PasswordHash)
	assert.False(t, result.User.CreatedAt.IsZero())

	claims, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)

	stored, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "Passw0rd1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Passw0rd1")))

	assert.Equal(t, []string{OutcomeSuccess}, events.signup)
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepo()
	events := &recordedEvents{}
	svc, _ := newTestService(t, repo, events)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "a@x.com", "Passw0rd1", "Alice")
	require.NoError(t, err)

	// パスワード・名前が異なっても、大文字小文字が異なっても重複とみなす
	_, err = svc.Signup(ctx, "A@X.COM", "Different9Pass", "Bob")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDuplicateEmail))

	assert.Equal(t, []string{OutcomeSuccess, OutcomeDuplicateEmail}, events.signup)
}

func TestService_Signup_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		field    string
	}{
		{name: "メール形式不正", email: "not-an-email", password: "Passw0rd1", field: "email"},
		{name: "パスワードが短い", email: "a@x.com", password: "Pa1", field: "password"},
		{name: "数字なし", email: "a@x.com", password: "Password", field: "password"},
		{name: "名前が長すぎる", email: "a@x.com", password: "Passw0rd1", userName: string(make([]rune, 101)), field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := &mockUserRepo{
				createFn: func(_ context.Context, _ *model.User) error {
					t.Fatal("Create must not be called on invalid input")
					return nil
				},
			}
			svc, _ := newTestService(t, repo, nil)

			_, err := svc.Signup(context.Background(), tt.email, tt.password, tt.userName)
			require.Error(t, err)

			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, model.KindValidationFailed, apiErr.Kind)
			assert.Equal(t, tt.field, apiErr.Field)
		})
	}
}

// 事前チェックをすり抜けた同時登録はストアの一意制約で重複として扱う
func TestService_Signup_StoreConflictIsDuplicate(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return model.NewDuplicateEmailError()
		},
	}
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.Signup(context.Background(), "a@x.com", "Passw0rd1", "")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDuplicateEmail))
}

func TestService_Signup_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepo()
	svc, _ := newTestService(t, repo, nil)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dups      int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(context.Background(), "race@x.com", "Passw0rd1", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case model.IsKind(err, model.KindDuplicateEmail):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, dups)
}

func TestService_Signup_RepositoryError(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	events := &recordedEvents{}
	svc, _ := newTestService(t, repo, events)

	_, err := svc.Signup(context.Background(), "a@x.com", "Passw0rd1", "")
	require.Error(t, err)
	_, isAPIErr := model.KindOf(err)
	assert.False(t, isAPIErr)
	assert.Equal(t, []string{OutcomeError}, events.signup)
}

// --- Login ---

func TestService_Login_Success(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepo()
	svc, tokens := newTestService(t, repo, nil)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, "a@x.com", "Passw0rd1", "Alice")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "A@x.com", "Passw0rd1")
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, result.User.ID)
	assert.Empty(t, result.User.PasswordHash)

	claims, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, claims.UserID)
}

func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryUserRepo()
	events := &recordedEvents{}
	svc, _ := newTestService(t, repo, events)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "a@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "Passw0rd1")
	_, wrongErr := svc.Login(ctx, "a@x.com", "Wrong0Pass")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.True(t, model.IsKind(unknownErr, model.KindInvalidCredentials))
	assert.Equal(t, unknownErr, wrongErr)

	unknownJSON, err := json.Marshal(unknownErr)
	require.NoError(t, err)
	wrongJSON, err := json.Marshal(wrongErr)
	require.NoError(t, err)
	assert.JSONEq(t, string(unknownJSON), string(wrongJSON))

	assert.Equal(t, []string{OutcomeInvalidCredentials, OutcomeInvalidCredentials}, events.login)
}

func TestService_Login_ValidationFailure(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, repository.NewMemoryUserRepo(), nil)

	_, err := svc.Login(context.Background(), "a@x.com", "")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidationFailed))
}

// --- GetIdentity ---

func TestService_GetIdentity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, repository.NewMemoryUserRepo(), nil)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, "a@x.com", "Passw0rd1", "Alice")
	require.NoError(t, err)

	user, err := svc.GetIdentity(ctx, signed.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.GetIdentity(ctx, "missing")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

// --- シナリオ ---

func TestService_SignupLoginIdentityScenario(t *testing.T) {
	t.Parallel()

	svc, tokens := newTestService(t, repository.NewMemoryUserRepo(), nil)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, "a@x.com", "Passw0rd1", "Alice")
	require.NoError(t, err)

	logged, err := svc.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	c1, err := tokens.Verify(signed.Token)
	require.NoError(t, err)
	c2, err := tokens.Verify(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, c1.UserID, c2.UserID)

	user, err := svc.GetIdentity(ctx, c1.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "a@x.com", user.Email)

	body, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
}
