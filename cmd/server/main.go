package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/calendarinvite/event-management/app"
	"github.com/calendarinvite/event-management/internal/processor"
	"github.com/calendarinvite/event-management/internal/repo/attendee"
	"github.com/calendarinvite/event-management/internal/repo/authz"
	"github.com/calendarinvite/event-management/internal/repo/event"
	"github.com/calendarinvite/event-management/internal/repo/outbox"
	"github.com/calendarinvite/event-management/internal/repo/stats"
	"github.com/calendarinvite/event-management/lib/kafka"
	"github.com/calendarinvite/event-management/router"
)

const inboundBatchSize = 10

func main() {
	cfg := app.Setup()
	cfg.Logging.Setup()

	db, err := cfg.Database.Setup()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up database")
	}

	kafkaCfg := &kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
	}
	if err := kafkaCfg.Ping(context.Background()); err != nil {
		logrus.WithError(err).Warn("Kafka unreachable at startup, continuing")
	}
	if err := kafka.CreateTopic(kafkaCfg, cfg.Kafka.InboundTopic, 3, 1); err != nil {
		logrus.WithError(err).Warn("Failed to create inbound topic")
	}

	events := event.New(db, event.Config{
		Tenant:      cfg.Engine.Tenant,
		InviteLimit: cfg.Engine.InviteLimit,
	})
	ledger := attendee.New(db, attendee.Config{})
	gate := authz.New(db)
	reader := stats.NewReader(db)

	producer := kafka.NewProducer(kafkaCfg)
	defer producer.Close()

	outboxWorker := outbox.NewWorker(db, producer)
	outboxWorker.Start()
	defer outboxWorker.Stop()

	proc := processor.New(events, ledger, gate)
	inbound := kafka.NewBatchWorker[processor.Message](
		kafkaCfg, cfg.Kafka.InboundTopic, inboundBatchSize, proc.Handle,
	)
	go func() {
		if err := inbound.Run(context.Background()); err != nil {
			logrus.WithError(err).Error("Inbound consumer stopped")
		}
	}()

	router.Setup(router.Deps{
		Events: events,
		Ledger: ledger,
		Stats:  reader,
	}, cfg.Web.Port)
}
