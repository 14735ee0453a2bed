// Package authz は所有者を持つリソースへのアクセス可否を判定する認可ガードを提供する。
//
// ガード付き操作は常に「取得 → 存在確認 → 所有者確認 → 実行」の順で評価する。
// 他ユーザーのリソースの存在を漏らさないため、存在しないリソースには必ず
// NotFoundを返し、Forbiddenを返すのは存在するが所有者が異なる場合に限る。
// 判定結果はキャッシュせず、操作ごとに評価し直す。
package authz

import "github.com/hitoshi/todoman/internal/model"

// Resource は所有者を持つリソース。
type Resource interface {
	OwnerID() string
}

// AssertExists はリソースの取得結果がnilの場合にnotFoundを返す。
// notFoundには種別がNotFoundのリソース固有エラーを渡す。nilの場合は汎用のNotFoundを返す。
func AssertExists[T any](resource *T, notFound *model.APIError) error {
	if resource != nil {
		return nil
	}
	if notFound == nil {
		return model.NewNotFoundError("resource", "")
	}
	return notFound
}

// AssertOwnership はリソースの所有者が操作ユーザーと異なる場合にForbiddenを返す。
// 副作用もI/Oもない純粋な判定。
func AssertOwnership(resource Resource, actingUserID string) error {
	if actingUserID == "" || resource.OwnerID() != actingUserID {
		return model.NewForbiddenError()
	}
	return nil
}

// Authorize は存在確認と所有者確認をこの順で行い、通過したリソースを返す。
// resourceにはリポジトリの取得結果（見つからない場合はnil）をそのまま渡す。
func Authorize[T any, PT interface {
	*T
	Resource
}](resource PT, notFound *model.APIError, actingUserID string) (PT, error) {
	var zero PT
	if err := AssertExists((*T)(resource), notFound); err != nil {
		return zero, err
	}
	if err := AssertOwnership(resource, actingUserID); err != nil {
		return zero, err
	}
	return resource, nil
}
