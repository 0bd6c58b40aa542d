package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memehub-bot/internal/database/models"
)

type mockSettingsReader struct {
	mock.Mock
}

func (m *mockSettingsReader) GetSettings(ctx context.Context, channelID int64) (*models.ChannelSettings, error) {
	args := m.Called(ctx, channelID)
	if s, ok := args.Get(0).(*models.ChannelSettings); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPostCounter struct {
	mock.Mock
}

func (m *mockPostCounter) CountPending(ctx context.Context, channelID int64) (int64, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPostCounter) CountPublishedByChannelSince(ctx context.Context, channelID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, channelID, since)
	return args.Get(0).(int64), args.Error(1)
}

func fixedSettings(interval int, last *time.Time) *models.ChannelSettings {
	s := models.DefaultChannelSettings(100)
	s.IntervalMinutes = interval
	s.LastPostTime = last
	return s
}

func smartSettings(aggressiveness string, last *time.Time) *models.ChannelSettings {
	s := models.DefaultChannelSettings(100)
	s.IntervalMinutes = 60
	s.SmartMode = true
	s.Aggressiveness = aggressiveness
	s.LastPostTime = last
	return s
}

func TestDecideZeroIntervalIsImmediate(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(fixedSettings(0, &last), nil)

	policy := NewPolicy(settings, queue)
	now := last.Add(time.Minute)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.True(t, d.Immediate)
	assert.False(t, d.Adaptive)
	queue.AssertNotCalled(t, "CountPending", mock.Anything, mock.Anything)
}

func TestDecideNoLastPostIsImmediate(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(fixedSettings(60, nil), nil)

	policy := NewPolicy(settings, queue)
	d, err := policy.Decide(context.Background(), 100, time.Now())

	require.NoError(t, err)
	assert.True(t, d.Immediate)
}

func TestDecideFixedIntervalDefers(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(fixedSettings(60, &last), nil)

	policy := NewPolicy(settings, queue)
	now := time.Date(2024, 3, 1, 10, 10, 0, 0, time.UTC)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.False(t, d.Immediate)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), d.PublishAt)
}

func TestDecideFixedIntervalElapsedIsImmediate(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(fixedSettings(60, &last), nil)

	policy := NewPolicy(settings, queue)
	now := time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.True(t, d.Immediate)
}

func TestDecideDailyCapDefersToNextDay(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	s := fixedSettings(0, nil)
	s.MaxPostsPerDay = 2
	settings.On("GetSettings", mock.Anything, int64(100)).Return(s, nil)
	midnight := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	queue.On("CountPublishedByChannelSince", mock.Anything, int64(100), midnight).Return(int64(2), nil)

	policy := NewPolicy(settings, queue)
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.False(t, d.Immediate)
	assert.Equal(t, midnight.AddDate(0, 0, 1), d.PublishAt)
}

func TestDecideDailyCapUnderLimitPublishes(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	s := fixedSettings(0, nil)
	s.MaxPostsPerDay = 2
	settings.On("GetSettings", mock.Anything, int64(100)).Return(s, nil)
	queue.On("CountPublishedByChannelSince", mock.Anything, int64(100), mock.Anything).Return(int64(1), nil)

	policy := NewPolicy(settings, queue)
	d, err := policy.Decide(context.Background(), 100, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.True(t, d.Immediate)
}

func TestDecideSmartHighPressureShortensInterval(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(smartSettings(models.AggressivenessAggressive, &last), nil)
	queue.On("CountPending", mock.Anything, int64(100)).Return(int64(12), nil)

	policy := NewPolicy(settings, queue)
	now := last.Add(5 * time.Minute)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.False(t, d.Immediate)
	assert.True(t, d.Adaptive)
	// aggressive base 45m shortened by 20m hits the 30m floor
	assert.Equal(t, last.Add(30*time.Minute), d.PublishAt)
}

func TestDecideSmartLowPressureLengthensInterval(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(smartSettings(models.AggressivenessModerate, &last), nil)
	queue.On("CountPending", mock.Anything, int64(100)).Return(int64(1), nil)

	policy := NewPolicy(settings, queue)
	now := last.Add(time.Minute)
	d, err := policy.Decide(context.Background(), 100, now)

	require.NoError(t, err)
	assert.False(t, d.Immediate)
	assert.Equal(t, last.Add(75*time.Minute), d.PublishAt)
}

func TestDecideSmartNightWindowPushesToMorning(t *testing.T) {
	settings := new(mockSettingsReader)
	queue := new(mockPostCounter)
	last := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC)
	settings.On("GetSettings", mock.Anything, int64(100)).Return(smartSettings(models.AggressivenessConservative, &last), nil)
	queue.On("CountPending", mock.Anything, int64(100)).Return(int64(5), nil)

	policy := NewPolicy(settings, queue)
	// next would land at 03:00, inside the quiet window
	d, err := policy.Decide(context.Background(), 100, last.Add(time.Minute))

	require.NoError(t, err)
	assert.False(t, d.Immediate)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), d.PublishAt)
}

func TestEffectiveInterval(t *testing.T) {
	cases := []struct {
		name           string
		aggressiveness string
		queueLen       int64
		want           time.Duration
	}{
		{"conservative baseline", models.AggressivenessConservative, 5, 90 * time.Minute},
		{"moderate baseline", models.AggressivenessModerate, 5, 60 * time.Minute},
		{"aggressive baseline", models.AggressivenessAggressive, 5, 45 * time.Minute},
		{"deep queue shortens", models.AggressivenessModerate, 11, 40 * time.Minute},
		{"shallow queue lengthens", models.AggressivenessAggressive, 2, 60 * time.Minute},
		{"floor applies", models.AggressivenessAggressive, 12, 30 * time.Minute},
		{"unknown tier falls back to moderate", "weird", 5, 60 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveInterval(tc.aggressiveness, tc.queueLen))
		})
	}
}
