package usecase

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
)

func (s *Usecase) Profile(ctx context.Context) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	return s.currentUser(ctx)
}
