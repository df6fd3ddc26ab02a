package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/server/auth"
	"github.com/dmitrijs2005/recordhub/internal/server/config"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
)

func newAuthService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *AuthService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		StoreTimeout:                 time.Second,
	}
	return NewAuthService(db, rm, schema.Default(), cfg)
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// unknown login → unauthorized
	rmNF := &fakeRepoManager{
		r: &fakeRecordsRepo{},
		c: &fakeCredentialsRepo{},
		t: &fakeRefreshRepo{},
	}
	sNF := newAuthService(t, db, rmNF)
	if _, _, err := sNF.Login(context.Background(), "ghost@example.com", "x"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("unknown login → unauthorized, got %v", err)
	}

	// record without credential → unauthorized
	record := &models.Record{ID: "r1", Fields: map[string]any{"email": "a@b.c"}}
	rmNC := &fakeRepoManager{
		r: &fakeRecordsRepo{listOut: []*models.Record{record}, listTotal: 1},
		c: &fakeCredentialsRepo{getErr: common.ErrNotFound},
		t: &fakeRefreshRepo{},
	}
	sNC := newAuthService(t, db, rmNC)
	if _, _, err := sNC.Login(context.Background(), "a@b.c", "x"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("no credential → unauthorized, got %v", err)
	}

	hash, err := auth.HashSecret("right-password")
	if err != nil {
		t.Fatalf("HashSecret error: %v", err)
	}

	// wrong secret → unauthorized
	rmWS := &fakeRepoManager{
		r: &fakeRecordsRepo{listOut: []*models.Record{record}, listTotal: 1},
		c: &fakeCredentialsRepo{getOut: &models.Credential{RecordID: "r1", SecretHash: hash}},
		t: &fakeRefreshRepo{},
	}
	sWS := newAuthService(t, db, rmWS)
	if _, _, err := sWS.Login(context.Background(), "a@b.c", "wrong-password"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("wrong secret → unauthorized, got %v", err)
	}

	// success
	rmOK := &fakeRepoManager{
		r: &fakeRecordsRepo{listOut: []*models.Record{record}, listTotal: 1},
		c: &fakeCredentialsRepo{getOut: &models.Credential{RecordID: "r1", SecretHash: hash}},
		t: &fakeRefreshRepo{},
	}
	sOK := newAuthService(t, db, rmOK)
	pair, got, err := sOK.Login(context.Background(), "a@b.c", "right-password")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Login success: pair=%+v err=%v", pair, err)
	}
	if got.ID != "r1" {
		t.Fatalf("wrong record returned: %+v", got)
	}

	recordID, err := sOK.VerifyAccessToken(pair.AccessToken)
	if err != nil || recordID != "r1" {
		t.Fatalf("VerifyAccessToken: got (%q, %v)", recordID, err)
	}
}

func TestLogin_ListErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		r: &fakeRecordsRepo{listErr: errBoom{}},
		c: &fakeCredentialsRepo{},
		t: &fakeRefreshRepo{},
	}
	s := newAuthService(t, db, rm)

	_, _, err := s.Login(context.Background(), "a@b.c", "x")
	if err == nil || errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("store error must not map to unauthorized, got %v", err)
	}
}

func TestRefresh_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		t: &fakeRefreshRepo{
			findOut: &models.RefreshToken{RecordID: "r1", Expires: time.Now().Add(10 * time.Minute)},
		},
	}
	s := newAuthService(t, db, rm)

	pair, err := s.Refresh(context.Background(), "refresh-xyz")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if pair.RefreshToken == "refresh-xyz" {
		t.Fatalf("refresh token was not rotated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		t: &fakeRefreshRepo{
			findOut: &models.RefreshToken{RecordID: "r1", Expires: time.Now().Add(-1 * time.Minute)},
		},
	}
	s := newAuthService(t, db, rm)

	_, err := s.Refresh(context.Background(), "stale")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{t: &fakeRefreshRepo{findErr: common.ErrNotFound}}
	s := newAuthService(t, db, rm)

	_, err := s.Refresh(context.Background(), "nope")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestRefresh_DeleteErrRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		t: &fakeRefreshRepo{
			findOut: &models.RefreshToken{RecordID: "r1", Expires: time.Now().Add(10 * time.Minute)},
			delErr:  errBoom{},
		},
	}
	s := newAuthService(t, db, rm)

	if _, err := s.Refresh(context.Background(), "r"); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogout(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{t: &fakeRefreshRepo{}})
	if err := s.Logout(context.Background(), "r"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	sErr := newAuthService(t, db, &fakeRepoManager{t: &fakeRefreshRepo{delErr: errBoom{}}})
	if err := sErr.Logout(context.Background(), "r"); err == nil {
		t.Fatalf("expected error")
	}
}
