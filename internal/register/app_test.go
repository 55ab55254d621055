package register

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	"github.com/hanuri-school/registration-api/pkg/config"
)

func appConfig() *config.Config {
	return &config.Config{
		Registration: config.RegistrationConfig{
			BackendURL:           "http://localhost:8080/api/v1",
			AdmissionThreshold:   7,
			HeartbeatInterval:    time.Hour,
			SchedulePollInterval: time.Hour,
		},
		Cleanup: config.CleanupConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond},
	}
}

func TestNewAppWiresConfig(t *testing.T) {
	backend := &fakeBackend{}
	app := NewApp(appConfig(), backend, zap.NewNop())

	require.NotNil(t, app.Bus)
	require.NotNil(t, app.Flow)
	require.NotNil(t, app.Gate)
	require.NotNil(t, app.Session)
	require.NotNil(t, app.Coordinator)

	assert.EqualValues(t, 7, app.Session.threshold)
	assert.Equal(t, time.Hour, app.Session.interval)
	assert.Equal(t, time.Hour, app.Gate.interval)
	assert.Same(t, app.Flow, app.Session.flow)
	assert.Same(t, app.Flow, app.Gate.flow)
	assert.NotNil(t, app.Coordinator.cleanup)
}

func TestNewAppDefaultsToHTTPClient(t *testing.T) {
	app := NewApp(appConfig(), nil, nil)

	client, ok := app.Backend.(*Client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080/api/v1", client.baseURL)
}

func TestAppAdmissionFlowEndToEnd(t *testing.T) {
	backend := &fakeBackend{
		session:   models.RegistrationSession{SessionKey: "key-1", Position: 9},
		positions: []int64{8, 7},
	}
	app := NewApp(appConfig(), backend, zap.NewNop())
	app.Start(context.Background())
	defer app.Stop(context.Background())

	require.NoError(t, app.Session.Start(context.Background(), "parent@example.com"))
	require.Equal(t, StageWaitingRoom, app.Flow.Current())

	app.Session.tick(context.Background())
	app.Session.tick(context.Background())

	assert.Equal(t, StateAdmitted, app.Session.State())
	assert.Equal(t, StageSelectStudent, app.Flow.Current())
}

func TestAppNewSelectorPullsCatalogAndEnrollments(t *testing.T) {
	backend := &fakeBackend{
		offerings: []models.ClassOffering{
			{ID: "off-1", Name: "History", Period: 1, MinGrade: 1, MaxGrade: 6, MaxKoreanLevel: 10, Year: 2026, Term: 1},
		},
	}
	app := NewApp(appConfig(), backend, zap.NewNop())

	student := models.Student{ID: "stu-1", Grade: 3, KoreanLevel: 2}
	selector, err := app.NewSelector(context.Background(), student, 2026, 1)
	require.NoError(t, err)
	require.Len(t, selector.Eligible(1), 1)
	assert.Equal(t, "off-1", selector.Eligible(1)[0].ID)
}
