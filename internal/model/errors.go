// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind は呼び出し元に返す失敗の種別を表す閉じた列挙型。
// トランスポート層はこの種別だけを見てステータスコードを決める。
type ErrorKind string

// 定義済みエラー種別
const (
	KindValidationFailed   ErrorKind = "validation_failed"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindTokenInvalid       ErrorKind = "token_invalid"
	KindTokenExpired       ErrorKind = "token_expired"
	KindNotFound           ErrorKind = "not_found"
	KindForbidden          ErrorKind = "forbidden"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー種別
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, todo, system
	Action   string    // ユーザー向け対処方法
	Field    string    // バリデーション違反のフィールド名（該当時のみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeTodoNotFound       = "TODO_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
)

// KindOf はエラーチェーンからAPIErrorの種別を取り出す。
// APIErrorを含まない場合はfalseを返す。
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsKind はエラーが指定された種別のAPIErrorかどうかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// NewValidationError はバリデーションエラーを生成する。
// fieldには違反したフィールド名、messageには違反した制約を指定する。
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Kind:     KindValidationFailed,
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Field:    field,
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Kind:     KindDuplicateEmail,
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// アカウントの存在有無を推測されないよう、常に同じ内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Kind:     KindInvalidCredentials,
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewTokenInvalidError は署名不一致・形式不正のトークンに対するエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Kind:     KindTokenInvalid,
		Code:     ErrCodeTokenInvalid,
		Message:  "認証トークンが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenExpiredError は有効期限切れトークンに対するエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Kind:     KindTokenExpired,
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTodoNotFoundError はTodoが見つからない場合のエラーを生成する。
func NewTodoNotFoundError(todoID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeTodoNotFound,
		Message:  fmt.Sprintf("指定されたTodoが見つかりません: %s", todoID),
		Category: "todo",
		Action:   "TodoIDを確認してください。",
	}
}

// NewNotFoundError は任意のリソースが見つからない場合のエラーを生成する。
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", resource, id),
		Category: "system",
		Action:   "IDを確認してください。",
	}
}

// NewForbiddenError はリソースの所有者以外による操作に対するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeForbidden,
		Message:  "このリソースを操作する権限がありません。",
		Category: "auth",
		Action:   "自分が作成したリソースのみ操作できます。",
	}
}
