package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRebuilder struct {
	mock.Mock
}

func (m *MockRebuilder) Rebuild(ctx context.Context, tenantID uint) error {
	args := m.Called(tenantID)
	return args.Error(0)
}

func TestCatchUp_MarkDirty(t *testing.T) {
	c := NewCatchUp(&MockRebuilder{}, time.Second, logrus.New())

	c.MarkDirty(3)
	c.MarkDirty(1)
	c.MarkDirty(3)

	assert.Equal(t, []uint{1, 3}, c.Dirty())
}

func TestCatchUp_RunOnce(t *testing.T) {
	rebuilder := &MockRebuilder{}
	c := NewCatchUp(rebuilder, time.Second, logrus.New())

	rebuilder.On("Rebuild", uint(1)).Return(nil).Once()
	rebuilder.On("Rebuild", uint(2)).Return(errors.New("disk I/O error")).Once()

	c.MarkDirty(1)
	c.MarkDirty(2)

	succeeded := c.RunOnce(context.Background())
	assert.Equal(t, 1, succeeded)

	// The failing tenant stays dirty for the next sweep
	assert.Equal(t, []uint{2}, c.Dirty())
	rebuilder.AssertExpectations(t)

	rebuilder.On("Rebuild", uint(2)).Return(nil).Once()
	assert.Equal(t, 1, c.RunOnce(context.Background()))
	assert.Empty(t, c.Dirty())
}

func TestCatchUp_RunOnceWithNothingDirty(t *testing.T) {
	rebuilder := &MockRebuilder{}
	c := NewCatchUp(rebuilder, time.Second, logrus.New())

	assert.Equal(t, 0, c.RunOnce(context.Background()))
	rebuilder.AssertNotCalled(t, "Rebuild", mock.Anything)
}

func TestCatchUp_StartRejectsBadSpec(t *testing.T) {
	c := NewCatchUp(&MockRebuilder{}, time.Second, logrus.New())
	assert.Error(t, c.Start("not a cron spec"))
}

func TestCatchUp_StartStop(t *testing.T) {
	rebuilder := &MockRebuilder{}
	c := NewCatchUp(rebuilder, time.Second, logrus.New())

	assert.NoError(t, c.Start("@every 1h"))
	c.Stop()
}
