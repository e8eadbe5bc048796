package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/inkpot/inkpot"
)

type ActivityStore struct {
	lastId int64
	logs   map[inkpot.UserId][]inkpot.ActivityLog
	mutex  sync.RWMutex
}

var _ inkpot.ActivityStore = (*ActivityStore)(nil)

func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		logs: make(map[inkpot.UserId][]inkpot.ActivityLog),
	}
}

func (s *ActivityStore) AddLog(ctx context.Context, userId inkpot.UserId, activity inkpot.Activity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	s.logs[userId] = append(s.logs[userId], inkpot.ActivityLog{
		Id:        s.lastId,
		CreatedAt: time.Now().UTC(),
		UserId:    userId,
		Name:      activity.Name,
		Data:      activity.Data,
	})
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId inkpot.UserId) ([]inkpot.ActivityLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs := s.logs[userId]
	newestFirst := make([]inkpot.ActivityLog, len(logs))
	for i, l := range logs {
		newestFirst[len(logs)-1-i] = l
	}
	return newestFirst, nil
}
