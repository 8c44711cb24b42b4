package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MoAftaab/slidecast/internal/pipeline"
	"github.com/MoAftaab/slidecast/internal/storage"
)

const (
	DefaultStream = "presentations:stream"
	DefaultGroup  = "pipeline-workers"
)

// PipelineWorkerPool consumes queued presentation jobs from a Redis stream
// and runs each through the processing pipeline. Jobs are independent: a
// worker crash only delays redelivery of its pending message.
type PipelineWorkerPool struct {
	Redis      *redis.Client
	Blobs      storage.BlobStore
	Runner     *pipeline.Runner
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *PipelineWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Blobs == nil || p.Runner == nil {
		return errors.New("PipelineWorkerPool missing dependency: Redis/Blobs/Runner must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *PipelineWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *PipelineWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	presentationID := getStr("presentation_id")
	sourceBlobID := getStr("source_blob_id")
	if presentationID == "" || sourceBlobID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":        msg.ID,
		"presentation_id": presentationID,
	})

	src, err := p.Blobs.Get(ctx, sourceBlobID)
	if err != nil {
		// The record must still reach a terminal state; leaving it in
		// processing would have callers polling forever.
		log.WithError(err).Error("failed to load source upload, failing job")
		if ferr := p.Runner.Records.MarkFailed(ctx, presentationID, "failed to load uploaded file", ""); ferr != nil {
			log.WithError(ferr).Error("failed to persist failure")
		}
		return
	}

	log.Info("processing presentation")
	p.Runner.Run(ctx, presentationID, src)
}
