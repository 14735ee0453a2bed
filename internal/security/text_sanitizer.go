// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力したTodoのタイトル・説明からマークアップを除去し、
// プレーンテキストとして保存する。bluemondayのStrictPolicyを使用し、
// すべてのタグとscript/style要素の中身を取り除く。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェース。
type TextSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
	// 実体参照は元の文字に戻す。空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのPolicyは生成後は読み取り専用のため、複数ゴルーチンから同時に使用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは出力をHTMLエスケープするため、保存前に元の文字へ戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
