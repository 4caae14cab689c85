package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

// RoleAdmin is the casbin role granted to staff users.
const RoleAdmin = "admin"

type CreateUserInput struct {
	Username  string `validate:"required,alphanum,min=3,max=150"`
	Email     string `validate:"required,email,max=254"`
	Password  string `validate:"required,password"`
	FirstName string `validate:"max=150"`
	LastName  string `validate:"max=150"`
	IsStaff   bool
}

func (s *Usecase) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	user := entity.User{
		ID:        s.uid.Generate(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsStaff:   in.IsStaff,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repoDB.CreateUser(ctx, user, entity.DefaultSettings(user.ID, now))
	if errors.Is(err, goerror.ErrConflict) {
		return nil, goerror.NewBusiness("username or email already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if user.IsStaff && s.roles != nil {
		if _, err := s.roles.AddGroupingPolicy(strconv.FormatInt(user.ID, 10), RoleAdmin); err != nil {
			slog.ErrorContext(ctx, "failed to grant admin role", "user_id", user.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID, "is_staff", user.IsStaff)

	return &user, nil
}
