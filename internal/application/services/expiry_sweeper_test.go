package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExpirySweeper_Sweep(t *testing.T) {
	alerts := new(MockAlertRepository)
	notifications := new(MockNotificationRepository)
	alerts.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)
	notifications.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("timeout"))

	res := services.NewExpirySweeper(alerts, notifications, nil).Sweep(context.Background())

	assert.Equal(t, int64(3), res.Alerts)
	assert.Zero(t, res.Notifications)
	alerts.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestExpirySweeper_StartRejectsBadSchedule(t *testing.T) {
	s := services.NewExpirySweeper(new(MockAlertRepository), new(MockNotificationRepository), nil)
	assert.Error(t, s.Start("every now and then"))
}

func TestExpirySweeper_RunsOnSchedule(t *testing.T) {
	alerts := new(MockAlertRepository)
	notifications := new(MockNotificationRepository)
	ran := make(chan struct{}, 4)
	alerts.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		ran <- struct{}{}
	})
	notifications.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := services.NewExpirySweeper(alerts, notifications, nil)
	require.NoError(t, s.Start("@every 1s"))
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}
}
