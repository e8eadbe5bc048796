package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/inkpot/inkpot"
	"github.com/uptrace/bun"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:activity_log"`

	Id        int64                  `bun:",pk,autoincrement"`
	CreatedAt time.Time              `bun:",notnull"`
	UserId    int64                  `bun:",notnull"`
	Name      string                 `bun:",notnull"`
	Data      map[string]interface{} `bun:",notnull"`
}

func (l *ActivityLog) ToDomain() inkpot.ActivityLog {
	return inkpot.ActivityLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt,
		UserId:    inkpot.UserId(l.UserId),
		Name:      l.Name,
		Data:      l.Data,
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ inkpot.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, userId inkpot.UserId, activity inkpot.Activity) error {
	data := activity.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	_, err := s.DB.NewInsert().
		Model(&ActivityLog{
			CreatedAt: time.Now().UTC(),
			UserId:    int64(userId),
			Name:      activity.Name,
			Data:      data,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId inkpot.UserId) ([]inkpot.ActivityLog, error) {
	var logs []ActivityLog
	err := s.DB.NewSelect().
		Model(&logs).
		Where("activity_log.user_id = ?", int64(userId)).
		OrderExpr("activity_log.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ml := make([]inkpot.ActivityLog, len(logs))
	for i, l := range logs {
		ml[i] = l.ToDomain()
	}
	return ml, nil
}
