package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 储位前后方位
const (
	PositionFront = "F"
	PositionBack  = "B"
)

// 储位左中右
const (
	SlotLeft   = "Left"
	SlotMiddle = "Middle"
	SlotRight  = "Right"
)

// Storage 固定实体储位，复合编码 区-架-层-前后-左中右，如 Z1-A-1-F-Left
type Storage struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Code     string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Area     string `json:"area" gorm:"size:10;not null"`
	Shelf    string `json:"shelf" gorm:"size:10;not null"`
	Floor    int    `json:"floor" gorm:"not null"`
	Position string `json:"position" gorm:"size:2;not null"`
	Slot     string `json:"slot" gorm:"size:10;not null"`

	Active    bool      `json:"active" gorm:"default:true"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Storage) TableName() string {
	return "storages"
}

// BuildStorageCode 组装储位编码
func BuildStorageCode(area, shelf string, floor int, position, slot string) string {
	return fmt.Sprintf("%s-%s-%d-%s-%s", area, shelf, floor, position, slot)
}

// ParseStorageCode 解析并校验储位编码
func ParseStorageCode(code string) (*Storage, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 5 {
		return nil, fmt.Errorf("储位编码格式错误: %s", code)
	}

	floor, err := strconv.Atoi(parts[2])
	if err != nil || floor <= 0 {
		return nil, fmt.Errorf("储位层数无效: %s", parts[2])
	}

	position := parts[3]
	if position != PositionFront && position != PositionBack {
		return nil, fmt.Errorf("储位方位无效: %s", position)
	}

	slot := parts[4]
	if slot != SlotLeft && slot != SlotMiddle && slot != SlotRight {
		return nil, fmt.Errorf("储位位置无效: %s", slot)
	}

	return &Storage{
		Code:     code,
		Area:     parts[0],
		Shelf:    parts[1],
		Floor:    floor,
		Position: position,
		Slot:     slot,
	}, nil
}
