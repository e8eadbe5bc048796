package inmem

import (
	"context"
	"testing"

	"github.com/inkpot/inkpot"
	"github.com/stretchr/testify/assert"
)

func TestActivityStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	uid := inkpot.UserId(5)

	s := NewActivityStore()
	{
		logs, err := s.ByUserId(ctx, uid)
		if assert.NoError(err) {
			assert.Equal(0, len(logs))
		}
	}

	err := s.AddLog(ctx, uid, inkpot.Activity{Name: inkpot.ActivityPostCreated, Data: map[string]interface{}{"post_id": 3}})
	if !assert.NoError(err) {
		return
	}
	err = s.AddLog(ctx, uid, inkpot.Activity{Name: inkpot.ActivityPostDeleted, Data: map[string]interface{}{"post_id": 3}})
	if !assert.NoError(err) {
		return
	}

	{
		logs, err := s.ByUserId(ctx, uid)
		if !assert.NoError(err) {
			return
		}
		if !assert.Equal(2, len(logs)) {
			return
		}
		assert.Equal(inkpot.ActivityPostDeleted, logs[0].Name)
		assert.Equal(inkpot.ActivityPostCreated, logs[1].Name)
		assert.Equal(map[string]interface{}{"post_id": 3}, logs[1].Data)
		assert.Equal(uid, logs[1].UserId)
	}

	{
		// unknown user id
		logs, err := s.ByUserId(ctx, inkpot.UserId(34290))
		if assert.NoError(err) {
			assert.Equal(0, len(logs))
		}
	}
}
