package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"yesno-backend/models"
)

var csvHeader = []string{"survey_id", "survey_title", "question_id", "question", "yes_count", "no_count", "created_at"}

// Export 导出问卷结果 CSV，仅所有者和管理员可用。
// 文本字段始终加双引号，计数为裸整数，行之间用 \n 分隔。
func (s *SurveyService) Export(ctx context.Context, p *models.Principal, id string) (*models.Survey, []byte, error) {
	survey, err := s.managed(ctx, p, id, false)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.store.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, nil, Upstream(err)
	}
	return survey, EncodeCSV(survey, questions), nil
}

// EncodeCSV 生成导出内容
func EncodeCSV(survey *models.Survey, questions []models.Question) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	for _, q := range questions {
		b.WriteByte('\n')
		b.WriteString(strings.Join([]string{
			quote(survey.ID),
			quote(survey.Title),
			quote(q.ID),
			quote(q.Body),
			strconv.FormatInt(q.YesCount, 10),
			strconv.FormatInt(q.NoCount, 10),
			quote(q.CreatedAt.UTC().Format(time.RFC3339Nano)),
		}, ","))
	}
	return []byte(b.String())
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
