package service

import (
	"context"
	"errors"

	"yesno-backend/models"
	"yesno-backend/repository"
)

// CanManage 所有者或管理员
func CanManage(p *models.Principal, s *models.Survey) bool {
	if p == nil {
		return false
	}
	return p.Admin() || p.UserID == s.OwnerID
}

// CanView 公开问卷任何人可见，私有问卷仅所有者和管理员可见
func CanView(p *models.Principal, s *models.Survey) bool {
	return s.IsPublic || CanManage(p, s)
}

// surveyAccess 问卷查询与权限检查
type surveyAccess struct {
	store *repository.Store
}

// visible 获取调用方可见的未删除问卷
func (a surveyAccess) visible(ctx context.Context, p *models.Principal, id string) (*models.Survey, error) {
	if id == "" {
		return nil, Validation("missing id")
	}
	survey, err := a.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	if !CanView(p, survey) {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// managed 获取调用方可管理的问卷，includeDeleted 为 true 时包含已软删除的
func (a surveyAccess) managed(ctx context.Context, p *models.Principal, id string, includeDeleted bool) (*models.Survey, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	if id == "" {
		return nil, Validation("surveyId required")
	}

	var (
		survey *models.Survey
		err    error
	)
	if includeDeleted {
		survey, err = a.store.GetSurveyUnscoped(ctx, id)
	} else {
		survey, err = a.store.GetSurvey(ctx, id)
	}
	if err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}

	if !CanManage(p, survey) {
		// 不可见的问卷不暴露其存在
		if !survey.IsPublic || survey.DeletedAt.Valid {
			return nil, ErrSurveyNotFound
		}
		return nil, ErrForbidden
	}
	return survey, nil
}

func mapStoreError(err error, notFound *Error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrLocked):
		return ErrSurveyLocked
	default:
		return Upstream(err)
	}
}
