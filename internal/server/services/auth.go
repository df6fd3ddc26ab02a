package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/auth"
	sc "github.com/dmitrijs2005/recordhub/internal/server/config"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/records"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
)

// TokenPair is what a successful login or refresh returns: a short-lived
// JWT plus an opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService issues and rotates token pairs. Login resolves a record by
// the schema's login field and verifies the presented secret against the
// stored bcrypt digest.
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	schema                       *schema.Schema
	secretKey                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	storeTimeout                 time.Duration
}

func NewAuthService(db *sql.DB, rm repomanager.RepositoryManager, s *schema.Schema, cfg *sc.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  rm,
		schema:                       s,
		secretKey:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		storeTimeout:                 cfg.StoreTimeout,
	}
}

func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// issueTokenPair mints an access token and stores a fresh refresh token for
// the record, both inside the caller's transaction scope.
func (s *AuthService) issueTokenPair(ctx context.Context, db dbx.DBTX, recordID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(recordID, s.secretKey, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, recordID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Login authenticates by the schema's login field. A missing record and a
// wrong secret are indistinguishable to the caller: both fail with
// common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, login, secret string) (*TokenPair, *models.Record, error) {
	if s.schema.LoginField == "" || s.schema.CredentialField == "" {
		return nil, nil, fmt.Errorf("schema %q does not support login: %w", s.schema.Name, common.ErrUnauthorized)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	result, _, err := s.repomanager.Records(s.db).List(ctx, records.ListOptions{
		Filter:   map[string]string{s.schema.LoginField: login},
		Page:     1,
		PageSize: 1,
	})
	if err != nil {
		if err = translateStoreErr(err); errors.Is(err, common.ErrTimeout) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error searching record: %w", common.ErrInternal)
	}
	if len(result) == 0 {
		return nil, nil, common.ErrUnauthorized
	}
	record := result[0]

	credential, err := s.repomanager.Credentials(s.db).GetByRecordID(ctx, record.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrUnauthorized
		}
		if err = translateStoreErr(err); errors.Is(err, common.ErrTimeout) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error searching credential: %w", common.ErrInternal)
	}

	if !auth.VerifySecret(secret, credential.SecretHash) {
		return nil, nil, common.ErrUnauthorized
	}

	pair, err := s.issueTokenPair(ctx, s.db, record.ID)
	if err != nil {
		return nil, nil, translateStoreErr(err)
	}

	return pair, record, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// new pair is issued atomically. An unknown token fails with
// common.ErrUnauthorized, a known but stale one with
// common.ErrRefreshTokenExpired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, translateStoreErr(err)
	}

	if time.Now().After(stored.Expires) {
		_ = s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return err
		}
		pair, err = s.issueTokenPair(ctx, tx, stored.RecordID)
		return err
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}

	return pair, nil
}

// Logout revokes a refresh token. Revoking an unknown token is a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return translateStoreErr(err)
	}
	return nil
}

// VerifyAccessToken checks an access token and returns the record key it
// was issued for.
func (s *AuthService) VerifyAccessToken(tokenString string) (string, error) {
	return auth.GetRecordIDFromToken(tokenString, s.secretKey)
}
