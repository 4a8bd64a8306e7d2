package models

import (
	"io"
	"time"
)

// AlertType - категория сообщения о происшествии
type AlertType string

const (
	AlertTypeEmergency AlertType = "emergency"
	AlertTypeNoise     AlertType = "noise"
	AlertTypeTraffic   AlertType = "traffic"
	AlertTypeSafety    AlertType = "safety"
	AlertTypeOther     AlertType = "other"
)

// AlertTypes перечисляет допустимые категории в порядке отображения
var AlertTypes = []AlertType{
	AlertTypeEmergency,
	AlertTypeNoise,
	AlertTypeTraffic,
	AlertTypeSafety,
	AlertTypeOther,
}

// Valid сообщает, входит ли значение в перечисление
func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Location - координаты метки на карте
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert - сообщение о происшествии в районе
type Alert struct {
	ID          int64     `json:"id"`
	Type        AlertType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    *Location `json:"location,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	AuthorKey   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	Comments    []Comment `json:"comments"`
}

// RecordID реализует Record
func (a *Alert) RecordID() int64 { return a.ID }

// AlertDraft - данные для создания сообщения
type AlertDraft struct {
	Type        AlertType
	Title       string
	Description string
	Location    *Location
	ImageURL    *string
}

// AlertPatch - частичное обновление сообщения; nil означает "без изменений"
type AlertPatch struct {
	Type        *AlertType
	Title       *string
	Description *string
	Location    *Location
	ImageURL    *string
}

// Empty сообщает, что патч ничего не меняет
func (p AlertPatch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil && p.Location == nil && p.ImageURL == nil
}

// ImageUpload - файл изображения, выбранный пользователем
type ImageUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Record - строка таблицы, доставляемая лентой изменений
type Record interface {
	RecordID() int64
}
