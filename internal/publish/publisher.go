// Package publish pushes a finished artifact to the configured sinks: object
// storage, the event bus and the catalog table, in that order.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/spf13/afero"

	"photomap/internal/catalog"
	"photomap/internal/config"
	"photomap/internal/models"
	"photomap/internal/storage"
	"photomap/pkg/kafkaclient"
)

// ObjectSink is implemented by *storage.S3Service.
type ObjectSink interface {
	Bucket() string
	ArtifactKey() string
	CreateBucket(ctx context.Context) error
	PutArtifact(ctx context.Context, data []byte) error
	PutPhotos(ctx context.Context, afs afero.Fs, root, publicPrefix string, records []models.PhotoLocation) (int, error)
}

// EventSink is implemented by *kafkaclient.KafkaProducer.
type EventSink interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

// CatalogSink is implemented by *catalog.Catalog.
type CatalogSink interface {
	EnsureTable(ctx context.Context) error
	Replace(ctx context.Context, records []models.PhotoLocation) error
}

// Artifact is what a run produced.
type Artifact struct {
	Path    string
	Data    []byte
	Records []models.PhotoLocation
}

// Publisher holds the enabled sinks; a nil sink is skipped.
type Publisher struct {
	Objects      ObjectSink
	UploadPhotos bool
	Events       EventSink
	Catalog      CatalogSink

	Fs           afero.Fs
	PhotosDir    string
	PublicPrefix string
	Logger       log.Interface
	Now          func() time.Time

	closers []func() error
}

// Open builds a Publisher from cfg, connecting every enabled sink. Close
// releases the connections.
func Open(ctx context.Context, cfg *config.Config, afs afero.Fs, logger log.Interface) (*Publisher, error) {
	p := &Publisher{
		UploadPhotos: cfg.S3.UploadPhotos,
		Fs:           afs,
		PhotosDir:    cfg.Photos.Dir,
		PublicPrefix: cfg.Photos.PublicPrefix,
		Logger:       logger,
		Now:          time.Now,
	}

	if cfg.S3.Enabled {
		s3, err := storage.NewS3Service(cfg.S3, logger)
		if err != nil {
			return nil, err
		}
		p.Objects = s3
	}
	if cfg.Kafka.Enabled {
		producer, err := kafkaclient.NewKafkaProducer(cfg.Kafka.Topic, cfg.Kafka.Broker, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Events = producer
		p.closers = append(p.closers, producer.Close)
	}
	if cfg.Postgres.Enabled {
		conn, err := catalog.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Catalog = catalog.New(conn, cfg.Postgres.Table, logger)
		p.closers = append(p.closers, func() error { return conn.Close(context.Background()) })
	}
	return p, nil
}

// Enabled reports whether any sink is configured.
func (p *Publisher) Enabled() bool {
	return p.Objects != nil || p.Events != nil || p.Catalog != nil
}

// Publish sends a to every sink. The first failure stops publishing.
func (p *Publisher) Publish(ctx context.Context, a Artifact) error {
	event := models.ArtifactEvent{
		Artifact:    a.Path,
		Count:       len(a.Records),
		GeneratedAt: p.now().UTC(),
	}
	eventKey := a.Path

	if p.Objects != nil {
		if err := p.Objects.CreateBucket(ctx); err != nil {
			return fmt.Errorf("publish to object storage: %w", err)
		}
		if p.UploadPhotos {
			if _, err := p.Objects.PutPhotos(ctx, p.Fs, p.PhotosDir, p.PublicPrefix, a.Records); err != nil {
				return fmt.Errorf("publish photos: %w", err)
			}
		}
		if err := p.Objects.PutArtifact(ctx, a.Data); err != nil {
			return fmt.Errorf("publish to object storage: %w", err)
		}
		event.Bucket, event.Key = p.Objects.Bucket(), p.Objects.ArtifactKey()
		eventKey = event.Key
	}

	if p.Events != nil {
		if err := p.Events.PublishJSON(ctx, eventKey, event); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}

	if p.Catalog != nil {
		if err := p.Catalog.EnsureTable(ctx); err != nil {
			return fmt.Errorf("publish to catalog: %w", err)
		}
		if err := p.Catalog.Replace(ctx, a.Records); err != nil {
			return fmt.Errorf("publish to catalog: %w", err)
		}
	}
	if p.Logger != nil && p.Enabled() {
		p.Logger.WithField("records", len(a.Records)).Info("artifact published")
	}
	return nil
}

// Close releases the sink connections.
func (p *Publisher) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	p.closers = nil
	return errors.Join(errs...)
}

func (p *Publisher) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
