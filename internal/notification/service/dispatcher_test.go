package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authrepo "github.com/stockflow/stockflow-backend/internal/auth/repository"
	"github.com/stockflow/stockflow-backend/internal/notification/channel"
	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/internal/notification/service"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

// fakeChannel records sends and fails on demand
type fakeChannel struct {
	name    string
	sendErr error
	sent    []string
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, n *repository.Notification) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, *n.Recipient)
	return nil
}

func TestDispatcher_DispatchBatch(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	whatsapp := &fakeChannel{name: repository.ChannelWhatsApp}
	dispatcher := service.NewDispatcher(notifRepo, authrepo.NewUserRepository(suite.DB),
		[]channel.Channel{channel.NewInApp(), whatsapp}, logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleOwner})
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleManager})
	// employees and inactive users are not fan-out targets
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleEmployee})
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleOwner, Inactive: true})

	sent, err := dispatcher.DispatchBatch(ctx, company.String(), "STOCKOUT",
		"Rupture de stock", "Rupture de stock: Doliprane", []string{repository.ChannelInApp, repository.ChannelWhatsApp})
	require.NoError(t, err)

	// 2 notifiable users x 2 channels, every delivery confirmed
	assert.Equal(t, 4, sent)
	assert.Len(t, whatsapp.sent, 2)

	recorded, err := notifRepo.ListByCompany(ctx, company.String(), 50)
	require.NoError(t, err)
	require.Len(t, recorded, 4)

	byChannel := map[string]int{}
	for _, n := range recorded {
		byChannel[n.Channel]++
		assert.Equal(t, repository.StatusSent, n.Status)
		assert.NotNil(t, n.SentAt)
		require.NotNil(t, n.Recipient)
		assert.NotEmpty(t, *n.Recipient)
	}
	assert.Equal(t, 2, byChannel[repository.ChannelInApp])
	assert.Equal(t, 2, byChannel[repository.ChannelWhatsApp])
}

func TestDispatcher_FailedSendIsNotCounted(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	whatsapp := &fakeChannel{name: repository.ChannelWhatsApp, sendErr: errors.New("gateway unavailable")}
	dispatcher := service.NewDispatcher(notifRepo, authrepo.NewUserRepository(suite.DB),
		[]channel.Channel{channel.NewInApp(), whatsapp}, logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleOwner})

	sent, err := dispatcher.DispatchBatch(ctx, company.String(), "STOCKOUT",
		"Rupture de stock", "Rupture de stock: Doliprane", []string{repository.ChannelInApp, repository.ChannelWhatsApp})
	require.NoError(t, err)

	// the WhatsApp gateway is down, only the in-app delivery counts
	assert.Equal(t, 1, sent)

	recorded, err := notifRepo.ListByCompany(ctx, company.String(), 50)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, repository.ChannelInApp, recorded[0].Channel)
	assert.Equal(t, repository.StatusSent, recorded[0].Status)
}

func TestDispatcher_SkipsUnknownChannels(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	dispatcher := service.NewDispatcher(notifRepo, authrepo.NewUserRepository(suite.DB),
		[]channel.Channel{channel.NewInApp()}, logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	suite.Fixtures.CreateUser(ctx, company, testutil.UserOpts{Role: authrepo.RoleOwner})

	sent, err := dispatcher.DispatchBatch(ctx, company.String(), "LOW_STOCK",
		"Stock faible", "Stock faible: Aspirine", []string{repository.ChannelInApp, "PIGEON"})
	require.NoError(t, err)

	// no channel is configured for PIGEON, only the in-app one goes out
	assert.Equal(t, 1, sent)
}

func TestProcessor_ProcessPending(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	company := suite.Fixtures.CreateCompany(ctx)

	suite.Fixtures.CreateNotification(ctx, company, repository.ChannelInApp, "user-1")
	suite.Fixtures.CreateNotification(ctx, company, repository.ChannelWhatsApp, "+21698111222")
	suite.Fixtures.CreateNotification(ctx, company, repository.ChannelWhatsApp, "+21698333444")
	suite.Fixtures.CreateNotification(ctx, company, repository.ChannelEmail, "owner@test.tn")

	whatsapp := &fakeChannel{name: repository.ChannelWhatsApp}
	email := &fakeChannel{name: repository.ChannelEmail, sendErr: errors.New("gateway timeout")}
	processor := service.NewProcessor(suite.DB, notifRepo,
		[]channel.Channel{channel.NewInApp(), whatsapp, email}, logger.Nop())

	result, err := processor.ProcessPending(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 3, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, whatsapp.sent, 2)

	counts, err := notifRepo.CountByStatus(ctx, company.String())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[repository.StatusSent])
	assert.Equal(t, 1, counts[repository.StatusFailed])
	assert.Equal(t, 0, counts[repository.StatusPending])

	// a second pass finds nothing left, failed rows stay failed
	result, err = processor.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

func TestProcessor_UnknownChannelFails(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	company := suite.Fixtures.CreateCompany(ctx)
	id := suite.Fixtures.CreateNotification(ctx, company, repository.ChannelWhatsApp, "+21698555666")

	processor := service.NewProcessor(suite.DB, notifRepo, []channel.Channel{channel.NewInApp()}, logger.Nop())

	result, err := processor.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	var errorMessage string
	require.NoError(t, suite.Raw.GetContext(ctx, &errorMessage,
		`SELECT error_message FROM notifications WHERE id = $1`, id))
	assert.Contains(t, errorMessage, "no such channel")
}

func TestProcessor_SkipsRowsLockedByConcurrentDrain(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	suite.TruncateAll(ctx)

	notifRepo := repository.NewNotificationRepository(suite.DB)
	company := suite.Fixtures.CreateCompany(ctx)
	first := suite.Fixtures.CreateNotification(ctx, company, repository.ChannelInApp, "user-1")
	suite.Fixtures.CreateNotification(ctx, company, repository.ChannelInApp, "user-2")

	processor := service.NewProcessor(suite.DB, notifRepo, []channel.Channel{channel.NewInApp()}, logger.Nop())

	// Another drain holds the first row locked
	other, err := suite.DB.BeginTxx(ctx, nil)
	require.NoError(t, err)
	var lockedID string
	require.NoError(t, other.GetContext(ctx, &lockedID,
		`SELECT id FROM notifications WHERE id = $1 FOR UPDATE`, first))

	result, err := processor.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed, "the locked row must be skipped, not double-sent")

	require.NoError(t, other.Rollback())

	result, err = processor.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	counts, err := notifRepo.CountByStatus(ctx, company.String())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[repository.StatusSent])
}
