// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/todoman/internal/auth"
	"github.com/hitoshi/todoman/internal/model"
)

const bearerPrefix = "Bearer "

// トークン拒否理由のラベル
const (
	RejectMissing = "missing"
	RejectInvalid = "invalid"
	RejectExpired = "expired"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はBearerトークンの検証に必要なインターフェース。
// auth.TokenServiceが実装する。
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// TokenRejectionRecorder はトークン拒否を記録するインターフェース。
type TokenRejectionRecorder interface {
	RecordTokenRejection(reason string)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーがない場合はUNAUTHORIZED、不正・期限切れのトークンにはそれぞれの
// エラーコードで401を返す。recorderがnilの場合は拒否を記録しない。
func NewBearerAuthMiddleware(verifier TokenVerifier, recorder TokenRejectionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				recordRejection(recorder, RejectMissing)
				WriteErrorResponse(w, http.StatusUnauthorized, NewUnauthorizedError())
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				reason := RejectInvalid
				if model.IsKind(err, model.KindTokenExpired) {
					reason = RejectExpired
				}
				recordRejection(recorder, reason)
				WriteErrorResponse(w, http.StatusUnauthorized, toAPIError(err))
				return
			}

			markAuthenticated(r.Context(), claims.UserID)

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func recordRejection(recorder TokenRejectionRecorder, reason string) {
	if recorder != nil {
		recorder.RecordTokenRejection(reason)
	}
}

// NewUnauthorizedError は認証情報が無い場合のエラーを返す。
func NewUnauthorizedError() *model.APIError {
	return &model.APIError{
		Kind:     model.KindTokenInvalid,
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
