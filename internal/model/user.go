// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashは永続化専用で、レスポンスやログには出さない。
type User struct {
	ID           string
	Email        string
	PasswordHash string `json:"-"`
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
