package domain

import "time"

// CredentialAccount 表示一个共享的第三方流媒体账号。
//
// 账号通过引用被多个客户共享（账号不拥有客户），同一账号下的
// 客户应占用互不相同的 profile 槽位（1~5）。MailboxAddress 指向
// 本系统托管的关联邮箱，用于接收服务商的验证邮件。
type CredentialAccount struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email          string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password       string    `json:"password" gorm:"type:varchar(255);not null"`
	MailboxAddress string    `json:"mailboxAddress,omitempty" gorm:"type:varchar(255);index"`
	Note           string    `json:"note,omitempty" gorm:"type:varchar(255)"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MaxProfileNumber profile 槽位上限（含）
const MaxProfileNumber = 5

// AccountOccupancy 账号占用视图：哪些槽位被哪些在用客户占据
type AccountOccupancy struct {
	Account   CredentialAccount `json:"account"`
	Occupants []SlotOccupant    `json:"occupants"`
	FreeSlots []int             `json:"freeSlots"`
}

// SlotOccupant 槽位占用者
type SlotOccupant struct {
	CustomerID    string `json:"customerId"`
	CustomerName  string `json:"customerName"`
	ProfileNumber int    `json:"profileNumber"`
}
