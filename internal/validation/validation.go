// Package validation はリクエスト入力の形式・制約チェックを提供する。
// 違反時は違反したフィールドと制約を含むmodel.APIError（KindValidationFailed）を返す。
package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hitoshi/todoman/internal/model"
)

// 入力値の上限・下限
const (
	EmailMaxBytes        = 254 // RFC 5321のパス長上限
	PasswordMinLength    = 8
	PasswordMaxBytes     = 72 // bcryptが扱える最大バイト数
	NameMaxLength        = 100
	TitleMinLength       = 1
	TitleMaxLength       = 200
	DescriptionMaxLength = 1000
)

// NormalizeEmail はメールアドレスを保存・検索用に正規化する。
// 前後の空白を除去し、小文字に変換する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Email はメールアドレスの形式を検証する。
// 表示名付きアドレス（"Name <a@b>"）は受け付けない。
func Email(email string) error {
	if email == "" {
		return model.NewValidationError("email", "メールアドレスは必須です。")
	}
	if len(email) > EmailMaxBytes {
		return model.NewValidationError("email", "メールアドレスは254バイト以内で入力してください。")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return model.NewValidationError("email", "メールアドレスの形式が正しくありません。")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return model.NewValidationError("email", "メールアドレスの形式が正しくありません。")
	}
	return nil
}

// Password はパスワードポリシーを検証する。
// 8文字以上72バイト以下で、英大文字・英小文字・数字をそれぞれ1文字以上含む必要がある。
func Password(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return model.NewValidationError("password", "パスワードは8文字以上で入力してください。")
	}
	if len(password) > PasswordMaxBytes {
		return model.NewValidationError("password", "パスワードが長すぎます（72バイト以内）。")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		return model.NewValidationError("password", "パスワードには英大文字を含めてください。")
	}
	if !hasLower {
		return model.NewValidationError("password", "パスワードには英小文字を含めてください。")
	}
	if !hasDigit {
		return model.NewValidationError("password", "パスワードには数字を含めてください。")
	}
	return nil
}

// Signup はサインアップ入力を検証する。emailは正規化済みであること。
func Signup(email, password, name string) error {
	if err := Email(email); err != nil {
		return err
	}
	if err := Password(password); err != nil {
		return err
	}
	if utf8.RuneCountInString(name) > NameMaxLength {
		return model.NewValidationError("name", "名前は100文字以内で入力してください。")
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return model.NewValidationError("name", "名前に制御文字は使用できません。")
	}
	return nil
}

// Login はログイン入力を検証する。
// パスワードポリシーはここでは検証しない（ポリシー変更前のアカウントを締め出さないため）。
func Login(email, password string) error {
	if err := Email(email); err != nil {
		return err
	}
	if password == "" {
		return model.NewValidationError("password", "パスワードは必須です。")
	}
	return nil
}

// Title はTodoタイトルを検証する。前後の空白は長さに含めない。
func Title(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < TitleMinLength {
		return model.NewValidationError("title", "タイトルは必須です。")
	}
	if n > TitleMaxLength {
		return model.NewValidationError("title", "タイトルは200文字以内で入力してください。")
	}
	if containsControl(title) {
		return model.NewValidationError("title", "タイトルに制御文字は使用できません。")
	}
	return nil
}

// Description はTodo説明文を検証する。
func Description(description string) error {
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		return model.NewValidationError("description", "説明は1000文字以内で入力してください。")
	}
	if containsControl(description) {
		return model.NewValidationError("description", "説明に制御文字は使用できません。")
	}
	return nil
}

// Status はTodoの状態を検証する。
func Status(status model.TodoStatus) error {
	if !status.IsValid() {
		return model.NewValidationError("status", "状態には pending、completed のいずれかを指定してください。")
	}
	return nil
}

// TodoFilter は一覧取得の条件を検証し、未指定項目をデフォルト値で補完して返す。
func TodoFilter(status, sort, order string) (model.TodoFilter, error) {
	f := model.DefaultTodoFilter()

	switch model.TodoStatusFilter(status) {
	case "":
	case model.TodoFilterAll, model.TodoFilterPending, model.TodoFilterCompleted:
		f.Status = model.TodoStatusFilter(status)
	default:
		return f, model.NewValidationError("status", "状態には all、pending、completed のいずれかを指定してください。")
	}

	switch model.TodoSortField(sort) {
	case "":
	case model.TodoSortCreatedAt, model.TodoSortUpdatedAt:
		f.Sort = model.TodoSortField(sort)
	default:
		return f, model.NewValidationError("sort", "ソートキーには createdAt、updatedAt のいずれかを指定してください。")
	}

	switch model.SortOrder(order) {
	case "":
	case model.SortAsc, model.SortDesc:
		f.Order = model.SortOrder(order)
	default:
		return f, model.NewValidationError("order", "ソート順には asc、desc のいずれかを指定してください。")
	}

	return f, nil
}

// containsControl は改行・タブ以外の制御文字を含むかどうかを判定する。
func containsControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
