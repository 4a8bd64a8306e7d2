package v1

import "github.com/shenikar/neighborhood_alerts/internal/models"

func locationToModel(dto *LocationDTO) *models.Location {
	if dto == nil {
		return nil
	}
	return &models.Location{Lat: dto.Lat, Lng: dto.Lng}
}

func locationToDTO(loc *models.Location) *LocationDTO {
	if loc == nil {
		return nil
	}
	return &LocationDTO{Lat: loc.Lat, Lng: loc.Lng}
}

// DTOToAlertDraft преобразует DTO создания в черновик сообщения
func DTOToAlertDraft(dto CreateAlertRequest) models.AlertDraft {
	return models.AlertDraft{
		Type:        models.AlertType(dto.Type),
		Title:       dto.Title,
		Description: dto.Description,
		Location:    locationToModel(dto.Location),
		ImageURL:    dto.ImageURL,
	}
}

// DTOToAlertPatch преобразует DTO обновления в патч
func DTOToAlertPatch(dto UpdateAlertRequest) models.AlertPatch {
	patch := models.AlertPatch{
		Title:       dto.Title,
		Description: dto.Description,
		Location:    locationToModel(dto.Location),
		ImageURL:    dto.ImageURL,
	}
	if dto.Type != nil {
		t := models.AlertType(*dto.Type)
		patch.Type = &t
	}
	return patch
}

// ModelToCommentResponse преобразует комментарий в DTO для ответа
func ModelToCommentResponse(c models.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		AlertID:   c.AlertID,
		UserName:  c.UserName,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

// ModelsToCommentResponses преобразует слайс комментариев в слайс DTO
func ModelsToCommentResponses(comments []models.Comment) []CommentResponse {
	responses := make([]CommentResponse, len(comments))
	for i, c := range comments {
		responses[i] = ModelToCommentResponse(c)
	}
	return responses
}

// ModelToAlertResponse преобразует доменную модель в DTO для ответа
func ModelToAlertResponse(model *models.Alert) *AlertResponse {
	return &AlertResponse{
		ID:          model.ID,
		Type:        string(model.Type),
		Title:       model.Title,
		Description: model.Description,
		Location:    locationToDTO(model.Location),
		ImageURL:    model.ImageURL,
		CreatedAt:   model.CreatedAt,
		Comments:    ModelsToCommentResponses(model.Comments),
	}
}

// ModelsToAlertResponses преобразует слайс моделей в слайс DTO
func ModelsToAlertResponses(alerts []*models.Alert, offline bool) []*AlertResponse {
	responses := make([]*AlertResponse, len(alerts))
	for i, model := range alerts {
		responses[i] = ModelToAlertResponse(model)
		responses[i].Offline = offline
	}
	return responses
}
