package models

const MetaLastSyncedAt = "lastSyncedAt"

type AppMeta struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (AppMeta) TableName() string {
	return "app_meta"
}
