package v1

import "time"

// LocationDTO - координаты метки
// @Description Координаты метки на карте
type LocationDTO struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// CreateAlertRequest DTO для создания сообщения
// @Description DTO для создания сообщения
type CreateAlertRequest struct {
	Type        string       `json:"type" validate:"required,oneof=emergency noise traffic safety other"`
	Title       string       `json:"title" validate:"required,min=1,max=255"`
	Description string       `json:"description" validate:"required,max=2000"`
	Location    *LocationDTO `json:"location,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateAlertRequest DTO для частичного обновления сообщения; отсутствующее поле не меняется
// @Description DTO для обновления сообщения
type UpdateAlertRequest struct {
	Type        *string      `json:"type,omitempty" validate:"omitempty,oneof=emergency noise traffic safety other"`
	Title       *string      `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	Location    *LocationDTO `json:"location,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty" validate:"omitempty,url"`
}

// CreateCommentRequest DTO для добавления комментария
// @Description DTO для добавления комментария
type CreateCommentRequest struct {
	UserName string `json:"user_name" validate:"required,notblank,max=50"`
	Content  string `json:"content" validate:"required,notblank,max=1000"`
}

// CommentResponse DTO комментария
// @Description DTO комментария
type CommentResponse struct {
	ID        int64     `json:"id"`
	AlertID   int64     `json:"alert_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertResponse DTO сообщения. Offline - сообщение сохранено только на устройстве.
// @Description DTO сообщения
type AlertResponse struct {
	ID          int64             `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Location    *LocationDTO      `json:"location,omitempty"`
	ImageURL    *string           `json:"image_url,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Comments    []CommentResponse `json:"comments"`
	Offline     bool              `json:"offline,omitempty"`
}

// AlertListResponse DTO списка сообщений
// @Description DTO списка сообщений
type AlertListResponse struct {
	Alerts  []*AlertResponse `json:"alerts"`
	Offline bool             `json:"offline"`
}

// PermissionResponse DTO проверки владения
// @Description DTO проверки владения
type PermissionResponse struct {
	AlertID  int64 `json:"alert_id"`
	IsAuthor bool  `json:"is_author"`
}

// UploadResponse DTO загруженного изображения
// @Description DTO загруженного изображения
type UploadResponse struct {
	URL string `json:"url"`
}

// NicknameResponse DTO последнего ника
// @Description DTO последнего ника
type NicknameResponse struct {
	UserName string `json:"user_name"`
}

// HealthResponse DTO состояния шлюза
// @Description DTO состояния шлюза
type HealthResponse struct {
	Status           string `json:"status"`
	BackendConnected bool   `json:"backend_connected"`
}

// ErrorResponse DTO ошибки
// @Description DTO ошибки
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
