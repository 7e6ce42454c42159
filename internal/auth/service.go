package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/Raja2703/interview-system-backend/internal/ledger"
	"github.com/Raja2703/interview-system-backend/internal/models"
	"github.com/Raja2703/interview-system-backend/internal/workflow"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned for a bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the user repository interface the auth service depends on.
type UserStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRate(ctx context.Context, id uuid.UUID, creditsPerInterview int) error
}

type Service interface {
	// Register creates the user and, for attenders, grants the signup bonus
	// in the same transaction.
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, []string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateRate changes a taker's per-interview price. Existing requests
	// keep the amount escrowed at creation time.
	UpdateRate(ctx context.Context, id uuid.UUID, creditsPerInterview int) (*models.User, error)
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Email               string
	Password            string
	Name                string
	Roles               []string
	CreditsPerInterview int
}

type service struct {
	db     workflow.TxBeginner
	users  UserStore
	ledger ledger.Service
	secret []byte
}

func NewService(db workflow.TxBeginner, users UserStore, ledgerSvc ledger.Service, secret string) Service {
	return &service{db: db, users: users, ledger: ledgerSvc, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

func validRoles(roles []string) bool {
	if len(roles) == 0 {
		return false
	}
	for _, r := range roles {
		if r != models.RoleAttender && r != models.RoleTaker {
			return false
		}
	}
	return true
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !validRoles(in.Roles) {
		return nil, errors.New("invalid role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:                  uuid.New(),
		Email:               in.Email,
		Name:                in.Name,
		PasswordHash:        string(hash),
		Roles:               in.Roles,
		CreditsPerInterview: in.CreditsPerInterview,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	// Only payers get the welcome bonus.
	if user.HasRole(models.RoleAttender) {
		if err := s.ledger.GrantInitialBonus(ctx, tx, user.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user.ID, user.Roles)
}

func (s *service) issueToken(userID uuid.UUID, roles []string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: roles,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, []string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, nil, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, c.Roles, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *service) UpdateRate(ctx context.Context, id uuid.UUID, creditsPerInterview int) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(models.RoleTaker) {
		return nil, errors.New("only takers have an interview rate")
	}
	if err := s.users.UpdateRate(ctx, id, creditsPerInterview); err != nil {
		return nil, err
	}
	user.CreditsPerInterview = creditsPerInterview
	return user, nil
}
