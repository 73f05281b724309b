package entity

import "time"

// 附件归属对象类型
const (
	RelatedPO            = "po"
	RelatedConsolidation = "consolidation"
	RelatedBatch         = "batch"
)

// Attachment 附件（报价单、签收单、验收照片等），文件本体存MinIO
type Attachment struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	RelatedType string `json:"related_type" gorm:"size:20;not null;index:idx_att_related"`
	RelatedID   string `json:"related_id" gorm:"size:32;not null;index:idx_att_related"`

	FileName    string `json:"file_name" gorm:"size:255;not null"`
	ObjectPath  string `json:"object_path" gorm:"size:512;not null"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mime_type" gorm:"size:100"`

	UploadedBy string    `json:"uploaded_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
