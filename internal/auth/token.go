package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/todoman/internal/model"
)

// Claims はトークンに埋め込むユーザー識別情報。
type Claims struct {
	UserID string
	Email  string
}

// jwtClaims はJWTのペイロード。標準クレームにuserIdとemailを加える。
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// TokenConfig はトークンサービスの設定。
// 起動時に1回だけ構築し、コンストラクタに渡す。
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string

	// Clock は現在時刻の取得関数。nilの場合はtime.Nowを使う。
	Clock func() time.Time
}

// TokenService はHS256署名付きJWTの発行と検証を行う。
// サーバー側に状態を持たず、失効リストもない。署名と有効期限のみで検証する。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// 署名鍵が空の場合はエラーを返す。
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive: %s", cfg.TTL)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// TTL は発行するトークンの既定の有効期間を返す。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue は既定の有効期間でトークンを発行する。
func (s *TokenService) Issue(claims Claims) (string, error) {
	return s.IssueWithTTL(claims, s.ttl)
}

// IssueWithTTL は指定した有効期間でトークンを発行する。
// ttlが0以下の場合、発行直後から期限切れとして扱われる。
func (s *TokenService) IssueWithTTL(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: claims.UserID,
		Email:  claims.Email,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、発行時のクレームを返す。
// 署名不一致・形式不正・HS256以外のアルゴリズムはTokenInvalid、
// 有効期限切れはTokenExpiredを返す。
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	parsed := &jwtClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, model.NewTokenExpiredError()
		}
		return Claims{}, model.NewTokenInvalidError()
	}
	if !token.Valid || parsed.UserID == "" {
		return Claims{}, model.NewTokenInvalidError()
	}

	return Claims{UserID: parsed.UserID, Email: parsed.Email}, nil
}
