package repository

import (
	"context"

	"yesno-backend/models"
)

// EnsureProfile 首次访问时创建资料；bootstrap 为 true 时提升为管理员
func (s *Store) EnsureProfile(ctx context.Context, userID string, bootstrap bool) (*models.Profile, error) {
	profile := models.Profile{ID: userID}
	err := s.conn(ctx).
		Where(models.Profile{ID: userID}).
		Attrs(models.Profile{IsAdmin: bootstrap}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	if bootstrap && !profile.IsAdmin {
		if err := s.conn(ctx).Model(&profile).Update("is_admin", true).Error; err != nil {
			return nil, err
		}
		profile.IsAdmin = true
	}
	return &profile, nil
}
