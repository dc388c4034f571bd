package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"petmily/internal/provider"
	"petmily/pkg/sentinel"
)

// PostgresRepository persists members in PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const memberColumns = `id, uuid, email, password, name, phone_number, profile_image_url, role,
	social_id_kakao, social_id_naver, social_id_google,
	naver_refresh_token, google_refresh_token,
	created_at, updated_at, deleted_at`

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Member, error) {
	return r.findOne(ctx, `WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *PostgresRepository) FindByUUID(ctx context.Context, uuid string) (*Member, error) {
	return r.findOne(ctx, `WHERE uuid = $1 AND deleted_at IS NULL`, uuid)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	return r.findOne(ctx, `WHERE email = $1 AND deleted_at IS NULL`, email)
}

func (r *PostgresRepository) FindByPhoneNumber(ctx context.Context, phone string) (*Member, error) {
	return r.findOne(ctx, `WHERE phone_number = $1 AND deleted_at IS NULL`, phone)
}

func (r *PostgresRepository) FindBySocialID(ctx context.Context, p provider.Provider, externalID string) (*Member, error) {
	if externalID == "" {
		return nil, fmt.Errorf("empty external id: %w", sentinel.ErrNotFound)
	}
	var column string
	switch p {
	case provider.Kakao:
		column = "social_id_kakao"
	case provider.Naver:
		column = "social_id_naver"
	case provider.Google:
		column = "social_id_google"
	default:
		return nil, fmt.Errorf("provider %s has no social id column: %w", p, sentinel.ErrNotFound)
	}
	return r.findOne(ctx, `WHERE `+column+` = $1 AND deleted_at IS NULL`, externalID)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members `+where, arg)
	return scanMember(row)
}

func (r *PostgresRepository) Save(ctx context.Context, m *Member) error {
	now := time.Now()
	m.UpdatedAt = now

	if m.ID == 0 {
		m.CreatedAt = now
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO members (uuid, email, password, name, phone_number, profile_image_url, role,
				social_id_kakao, social_id_naver, social_id_google,
				naver_refresh_token, google_refresh_token, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id`,
			m.UUID, m.Email, m.Password, m.Name, m.PhoneNumber, m.ProfileImageURL, m.Role,
			nullable(m.SocialIDKakao), nullable(m.SocialIDNaver), nullable(m.SocialIDGoogle),
			nullable(m.NaverRefreshToken), nullable(m.GoogleRefreshToken), m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE members SET email=$2, password=$3, name=$4, phone_number=$5, profile_image_url=$6,
			role=$7, social_id_kakao=$8, social_id_naver=$9, social_id_google=$10,
			naver_refresh_token=$11, google_refresh_token=$12, updated_at=$13, deleted_at=$14
		WHERE id=$1`,
		m.ID, m.Email, m.Password, m.Name, m.PhoneNumber, m.ProfileImageURL, m.Role,
		nullable(m.SocialIDKakao), nullable(m.SocialIDNaver), nullable(m.SocialIDGoogle),
		nullable(m.NaverRefreshToken), nullable(m.GoogleRefreshToken), m.UpdatedAt, m.DeletedAt)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

func scanMember(row *sql.Row) (*Member, error) {
	var m Member
	var socialKakao, socialNaver, socialGoogle sql.NullString
	var naverRefresh, googleRefresh sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(&m.ID, &m.UUID, &m.Email, &m.Password, &m.Name, &m.PhoneNumber,
		&m.ProfileImageURL, &m.Role, &socialKakao, &socialNaver, &socialGoogle,
		&naverRefresh, &googleRefresh, &m.CreatedAt, &m.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan member: %w", err)
	}

	m.SocialIDKakao = socialKakao.String
	m.SocialIDNaver = socialNaver.String
	m.SocialIDGoogle = socialGoogle.String
	m.NaverRefreshToken = naverRefresh.String
	m.GoogleRefreshToken = googleRefresh.String
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return &m, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
