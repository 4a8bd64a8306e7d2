package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/shenikar/neighborhood_alerts/internal/service"
)

// DB - подмножество pgxpool.Pool, используемое репозиторием
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const alertColumns = `id, type, title, description, lat, lng, image_url, author_key, created_at`

type AlertRepository struct {
	db DB
}

func NewAlertRepository(db DB) service.AlertRepository {
	return &AlertRepository{db: db}
}

// alertRow - строка таблицы alerts; координаты хранятся отдельными колонками
type alertRow struct {
	ID          int64
	Type        string
	Title       string
	Description string
	Lat         *float64
	Lng         *float64
	ImageURL    *string
	AuthorKey   string
	CreatedAt   time.Time
}

func (r *alertRow) scanTargets() []any {
	return []any{&r.ID, &r.Type, &r.Title, &r.Description, &r.Lat, &r.Lng, &r.ImageURL, &r.AuthorKey, &r.CreatedAt}
}

func (r *alertRow) toModel() *models.Alert {
	return &models.Alert{
		ID:          r.ID,
		Type:        models.AlertType(r.Type),
		Title:       r.Title,
		Description: r.Description,
		Location:    models.JoinLocation(r.Lat, r.Lng),
		ImageURL:    r.ImageURL,
		AuthorKey:   r.AuthorKey,
		CreatedAt:   r.CreatedAt,
		Comments:    []models.Comment{},
	}
}

// Create создает новую запись о сообщении в бд
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	lat, lng := models.SplitLocation(alert.Location)
	query := `
		INSERT INTO alerts (type, title, description, lat, lng, image_url, author_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		string(alert.Type),
		alert.Title,
		alert.Description,
		lat,
		lng,
		alert.ImageURL,
		alert.AuthorKey,
		alert.CreatedAt,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// buildUpdate собирает UPDATE по непустым полям патча с фильтром по id и author_key
func buildUpdate(id int64, authorKey string, patch models.AlertPatch) (string, []any) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Type != nil {
		add("type", string(*patch.Type))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Location != nil {
		lat, lng := models.SplitLocation(patch.Location)
		add("lat", lat)
		add("lng", lng)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if len(sets) == 0 {
		// пустой патч все равно проверяет владение и возвращает текущую строку
		sets = append(sets, "id = id")
	}

	args = append(args, id, authorKey)
	query := fmt.Sprintf(`UPDATE alerts SET %s WHERE id = $%d AND author_key = $%d RETURNING %s;`,
		strings.Join(sets, ", "), len(args)-1, len(args), alertColumns)
	return query, args
}

// UpdateOwned обновляет сообщение, если ключ автора совпадает
func (r *AlertRepository) UpdateOwned(ctx context.Context, id int64, authorKey string, patch models.AlertPatch) (*models.Alert, error) {
	query, args := buildUpdate(id, authorKey, patch)

	row := &alertRow{}
	if err := r.db.QueryRow(ctx, query, args...).Scan(row.scanTargets()...); err != nil {
		// ни одной строки: чужой ключ или записи нет
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPermissionDenied
		}
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return row.toModel(), nil
}

// ImageURLOwned читает image_url сообщения, если ключ автора совпадает
func (r *AlertRepository) ImageURLOwned(ctx context.Context, id int64, authorKey string) (*string, error) {
	var imageURL *string
	err := r.db.QueryRow(ctx,
		`SELECT image_url FROM alerts WHERE id = $1 AND author_key = $2;`,
		id, authorKey,
	).Scan(&imageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPermissionDenied
		}
		return nil, fmt.Errorf("failed to read alert image: %w", err)
	}
	return imageURL, nil
}

// DeleteOwned удаляет сообщение (комментарии удаляются каскадно), если ключ автора совпадает
func (r *AlertRepository) DeleteOwned(ctx context.Context, id int64, authorKey string) (*models.Alert, error) {
	query := `DELETE FROM alerts WHERE id = $1 AND author_key = $2 RETURNING ` + alertColumns + `;`

	row := &alertRow{}
	if err := r.db.QueryRow(ctx, query, id, authorKey).Scan(row.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPermissionDenied
		}
		return nil, fmt.Errorf("failed to delete alert: %w", err)
	}
	return row.toModel(), nil
}

// ListWithComments возвращает все сообщения от новых к старым вместе с комментариями
func (r *AlertRepository) ListWithComments(ctx context.Context) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	byID := make(map[int64]*models.Alert)
	ids := make([]int64, 0)
	for rows.Next() {
		row := &alertRow{}
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alert := row.toModel()
		alerts = append(alerts, alert)
		byID[alert.ID] = alert
		ids = append(ids, alert.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	if len(ids) == 0 {
		return alerts, nil
	}

	comments, err := r.queryComments(ctx,
		`SELECT id, alert_id, user_name, content, created_at
		FROM comments
		WHERE alert_id = ANY($1)
		ORDER BY created_at ASC, id ASC;`, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if alert, ok := byID[c.AlertID]; ok {
			alert.Comments = append(alert.Comments, c)
		}
	}
	return alerts, nil
}

// CreateComment сохраняет комментарий
func (r *AlertRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (alert_id, content, user_name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		comment.AlertID,
		comment.Content,
		comment.UserName,
		comment.CreatedAt,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments возвращает комментарии сообщения от старых к новым
func (r *AlertRepository) ListComments(ctx context.Context, alertID int64) ([]models.Comment, error) {
	return r.queryComments(ctx,
		`SELECT id, alert_id, user_name, content, created_at
		FROM comments
		WHERE alert_id = $1
		ORDER BY created_at ASC, id ASC;`, alertID)
}

func (r *AlertRepository) queryComments(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.AlertID, &c.UserName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error comments iteration: %w", err)
	}
	return comments, nil
}
