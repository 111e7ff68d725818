package domain

import "time"

// ArtifactKind 验证产物类型
type ArtifactKind string

const (
	// ArtifactCode 数字验证码
	ArtifactCode ArtifactKind = "code"
	// ArtifactLink 验证链接
	ArtifactLink ArtifactKind = "link"
)

// DefaultArtifactTTL 验证产物默认有效期
const DefaultArtifactTTL = 15 * time.Minute

// VerificationArtifact 表示从关联邮箱提取的短时效验证产物。
//
// 每个共享账号同一时刻只保留最新一份：新的抓取会覆盖旧产物。
// 过期后视为不存在，不单独做删除动作。
type VerificationArtifact struct {
	AccountID string       `json:"accountId"`
	Kind      ArtifactKind `json:"kind"`
	Value     string       `json:"value"`
	FetchedAt time.Time    `json:"fetchedAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Expired 判断产物是否已过期
func (a *VerificationArtifact) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
