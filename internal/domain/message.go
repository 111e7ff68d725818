package domain

import "time"

// InboundMessage 表示投递到托管邮箱的一封邮件。
//
// 系统只为接收服务商验证邮件而托管邮箱，邮件内容解析后即为
// 纯文本/HTML 两种正文，不保留附件。
type InboundMessage struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxAddress string    `json:"mailboxAddress" gorm:"type:varchar(255);index;not null"`
	FromAddress    string    `json:"fromAddress" gorm:"type:varchar(255)"`
	Subject        string    `json:"subject" gorm:"type:varchar(998)"`
	Text           string    `json:"text" gorm:"type:text"`
	HTML           string    `json:"html" gorm:"type:text"`
	ReceivedAt     time.Time `json:"receivedAt" gorm:"index"`
}
