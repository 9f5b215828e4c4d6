package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

// SQLSTATE unique_violation
const uniqueViolationCode = "23505"

// LinkRepository хранилище ссылок. Уникальность short гарантируется
// ограничением в БД, а не проверками вызывающего кода.
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetAll(ctx context.Context, limit int) ([]models.Link, error)
	GetTop(ctx context.Context, limit int) ([]models.Link, error)
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	Update(ctx context.Context, params models.UpdateLinkParams) (*models.Link, error)
	Delete(ctx context.Context, id int64) (*models.Link, error)
	IncrementClicks(ctx context.Context, code string) error
	Aggregate(ctx context.Context) (*models.LinkStats, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, short, url, title, description, clicks, created_at`

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short, url, title, description, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, clicks, created_at
	`

	// Нулевое время оставляет выбор метки времени базе
	createdAt := pgtype.Timestamptz{Time: link.CreatedAt, Valid: !link.CreatedAt.IsZero()}

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.Short,
		link.URL,
		link.Title,
		link.Description,
		createdAt,
	).Scan(&link.ID, &link.Clicks, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetAll(ctx context.Context, limit int) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

// GetTop ссылки по убыванию кликов, при равенстве новее первыми
func (r *linkRepository) GetTop(ctx context.Context, limit int) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY clicks DESC, created_at DESC, id DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *linkRepository) list(ctx context.Context, query string, limit int) ([]models.Link, error) {
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0, limit)
	for rows.Next() {
		var link models.Link
		if err := scanLink(rows, &link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short = $1`
	return r.getOne(ctx, query, code)
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *linkRepository) getOne(ctx context.Context, query string, arg any) (*models.Link, error) {
	link := &models.Link{}
	if err := scanLink(r.db.Pool.QueryRow(ctx, query, arg), link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

// Update заменяет url, title и description; short меняется только если передан
func (r *linkRepository) Update(ctx context.Context, params models.UpdateLinkParams) (*models.Link, error) {
	query := `
		UPDATE links
		SET url = $2, title = $3, description = $4, short = COALESCE($5, short)
		WHERE id = $1
		RETURNING ` + linkColumns

	link := &models.Link{}
	err := scanLink(r.db.Pool.QueryRow(
		ctx,
		query,
		params.ID,
		params.URL,
		params.Title,
		params.Description,
		params.Short,
	), link)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) Delete(ctx context.Context, id int64) (*models.Link, error) {
	query := `DELETE FROM links WHERE id = $1 RETURNING ` + linkColumns

	link := &models.Link{}
	if err := scanLink(r.db.Pool.QueryRow(ctx, query, id), link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to delete link: %w", err)
	}

	return link, nil
}

// IncrementClicks атомарный инкремент одним UPDATE, без чтения значения
func (r *linkRepository) IncrementClicks(ctx context.Context, code string) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE short = $1`

	result, err := r.db.Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) Aggregate(ctx context.Context) (*models.LinkStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(clicks), 0)::BIGINT,
			COALESCE(AVG(clicks), 0)::FLOAT8,
			COALESCE(MAX(clicks), 0)::BIGINT
		FROM links
	`

	stats := &models.LinkStats{}
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&stats.TotalLinks,
		&stats.TotalClicks,
		&stats.AvgClicks,
		&stats.MaxClicks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate links: %w", err)
	}

	return stats, nil
}

func scanLink(row pgx.Row, link *models.Link) error {
	return row.Scan(
		&link.ID,
		&link.Short,
		&link.URL,
		&link.Title,
		&link.Description,
		&link.Clicks,
		&link.CreatedAt,
	)
}

// Проверка на нарушение уникальности
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
