package service

import (
	"context"
	"math"

	"yesno-backend/models"
)

// OptionResult 选项结果
type OptionResult struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Position  int    `json:"position"`
	VoteCount int64  `json:"vote_count"`
	Percent   int    `json:"percent"`
}

// QuestionResult 问题结果
type QuestionResult struct {
	ID       string              `json:"id"`
	Body     string              `json:"body"`
	Type     models.QuestionType `json:"type"`
	YesCount int64               `json:"yes_count"`
	NoCount  int64               `json:"no_count"`
	Total    int64               `json:"total"`
	YesPct   int                 `json:"yes_pct"`
	NoPct    int                 `json:"no_pct"`
	Popular  bool                `json:"popular"`
	Options  []OptionResult      `json:"options,omitempty"`
}

// SurveyResults 问卷结果
type SurveyResults struct {
	Survey    *models.Survey   `json:"survey"`
	Questions []QuestionResult `json:"questions"`
}

// Results 问卷汇总结果，可见性规则与 Get 相同
func (s *SurveyService) Results(ctx context.Context, p *models.Principal, id string) (*SurveyResults, error) {
	survey, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, Upstream(err)
	}

	results := &SurveyResults{Survey: survey, Questions: make([]QuestionResult, 0, len(questions))}
	for _, q := range questions {
		results.Questions = append(results.Questions, summarize(q))
	}
	return results, nil
}

func summarize(q models.Question) QuestionResult {
	r := QuestionResult{
		ID:       q.ID,
		Body:     q.Body,
		Type:     q.Type,
		YesCount: q.YesCount,
		NoCount:  q.NoCount,
	}

	if q.Type == models.QuestionMultipleChoice {
		for _, o := range q.Options {
			r.Total += o.VoteCount
		}
		for _, o := range q.Options {
			r.Options = append(r.Options, OptionResult{
				ID:        o.ID,
				Label:     o.Label,
				Position:  o.Position,
				VoteCount: o.VoteCount,
				Percent:   percent(o.VoteCount, r.Total),
			})
		}
	} else {
		r.Total = q.YesCount + q.NoCount
		if r.Total > 0 {
			r.YesPct = percent(q.YesCount, r.Total)
			r.NoPct = 100 - r.YesPct
		}
	}
	r.Popular = r.Total >= PopularThreshold
	return r
}

func percent(n, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
