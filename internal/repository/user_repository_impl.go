package repository

import (
	"context"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func CreateUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

// GetUserProfile reads the role fresh on every call; roles can change while
// a token is still valid.
func (r *UserRepositoryImpl) GetUserProfile(ctx context.Context, id string) (data domain.UserProfile, err error) {
	err = r.db.GetContext(ctx, &data, "SELECT id, role FROM user_profiles WHERE id = $1", id)
	if err != nil {
		log.Error().Err(err).Str("component", "GetUserProfile").Msg("")
		return data, translateError(err)
	}

	return data, nil
}
