package mock

import (
	"context"

	"github.com/inkpot/inkpot"
)

type ActivityStore struct {
	AddLogFn func(ctx context.Context, userId inkpot.UserId, activity inkpot.Activity) error

	ByUserIdFn func(ctx context.Context, userId inkpot.UserId) ([]inkpot.ActivityLog, error)
}

func (s ActivityStore) AddLog(ctx context.Context, userId inkpot.UserId, activity inkpot.Activity) error {
	return s.AddLogFn(ctx, userId, activity)
}

func (s ActivityStore) ByUserId(ctx context.Context, userId inkpot.UserId) ([]inkpot.ActivityLog, error) {
	return s.ByUserIdFn(ctx, userId)
}
