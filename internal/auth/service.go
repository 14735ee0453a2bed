// Package auth はパスワード認証、トークン発行・検証、ユーザー識別情報の取得を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/validation"
)

// dummyPassword はユーザー不在時にも照合コストを揃えるためのダミー平文。
const dummyPassword = "todoman-dummy-Passw0rd"

// EventRecorder は認証イベントを記録するインターフェース。
// metrics.Collectorが実装する。
type EventRecorder interface {
	RecordSignup(outcome string)
	RecordLogin(outcome string)
}

// 認証イベントの結果ラベル
const (
	OutcomeSuccess            = "success"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeValidationFailed   = "validation_failed"
	OutcomeError              = "error"
)

type nopRecorder struct{}

func (nopRecorder) RecordSignup(string) {}
func (nopRecorder) RecordLogin(string)  {}

// AuthResult はサインアップ・ログイン成功時の結果。
// UserにはPasswordHashを含めない。
type AuthResult struct {
	User  *model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	hasher    *PasswordHasher
	tokens    *TokenService
	recorder  EventRecorder
	dummyHash string
	now       func() time.Time
}

// NewService はServiceを生成する。
// recorderがnilの場合はイベントを記録しない。
func NewService(
	userRepo repository.UserRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	recorder EventRecorder,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	// ダミーハッシュの生成に失敗しても、照合が常にfalseになるだけなので起動は継続する
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		slog.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
	}

	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		recorder:  recorder,
		dummyHash: dummyHash,
		now:       time.Now,
	}
}

// Signup は新規ユーザーを登録し、トークンを発行する。
// 同じメールアドレスのユーザーが既に存在する場合はDuplicateEmailを返す。
// 事前チェックは利用者向けのエラーを返すためのもので、
// 同時登録時の一意性はストアの一意制約違反（DuplicateEmailに変換済み）で保証される。
func (s *Service) Signup(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validation.Signup(email, password, name); err != nil {
		s.recorder.RecordSignup(OutcomeValidationFailed)
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		s.recorder.RecordSignup(OutcomeDuplicateEmail)
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if model.IsKind(err, model.KindDuplicateEmail) {
			s.recorder.RecordSignup(OutcomeDuplicateEmail)
			return nil, err
		}
		s.recorder.RecordSignup(OutcomeError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, err
	}

	s.recorder.RecordSignup(OutcomeSuccess)
	slog.Info("new user signed up", slog.String("user_id", user.ID))

	return &AuthResult{User: publicUser(user), Token: token}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// ユーザー不在とパスワード不一致は区別せず、同一のInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.Login(email, password); err != nil {
		s.recorder.RecordLogin(OutcomeValidationFailed)
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recorder.RecordLogin(OutcomeError)
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		// 応答時間からアカウントの有無を推測されないよう、ダミーハッシュと照合する
		s.hasher.Verify(password, s.dummyHash)
		s.recorder.RecordLogin(OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recorder.RecordLogin(OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		s.recorder.RecordLogin(OutcomeError)
		return nil, err
	}

	s.recorder.RecordLogin(OutcomeSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &AuthResult{User: publicUser(user), Token: token}, nil
}

// GetIdentity は指定IDのユーザー情報を返す。
// 見つからない場合はNotFound種別のエラーを返す。
func (s *Service) GetIdentity(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return publicUser(user), nil
}

// publicUser はPasswordHashを除いたユーザーのコピーを返す。
func publicUser(u *model.User) *model.User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
