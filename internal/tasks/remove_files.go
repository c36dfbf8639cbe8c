package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	log "github.com/sirupsen/logrus"

	"github.com/mrlokans/ebooklib/internal/storage"
)

const RemoveFilesQueue = "remove_ebook_files"

// RemoveFilesTask deletes stored objects left behind by a deleted e-book.
type RemoveFilesTask struct {
	Keys []string `json:"keys"`
}

// Config returns the queue configuration for file removal tasks.
func (t RemoveFilesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        RemoveFilesQueue,
		MaxAttempts: 5,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RemoveFilesProcessor creates a processor function for RemoveFilesTask.
func RemoveFilesProcessor(store storage.Client) backlite.QueueProcessor[RemoveFilesTask] {
	return func(ctx context.Context, task RemoveFilesTask) error {
		if store == nil {
			return errors.New("file store not configured")
		}
		if err := storage.DeleteAll(ctx, store, task.Keys...); err != nil {
			return fmt.Errorf("remove ebook files: %w", err)
		}
		log.WithField("keys", task.Keys).Info("Removed ebook files")
		return nil
	}
}

// NewRemoveFilesQueue creates a backlite queue for file removal tasks.
func NewRemoveFilesQueue(store storage.Client) backlite.Queue {
	return backlite.NewQueue(RemoveFilesProcessor(store))
}

// QueueRemover defers file removal to the task queue so a slow or failing
// store never blocks the delete request.
type QueueRemover struct {
	client *Client
}

func NewQueueRemover(client *Client) *QueueRemover {
	return &QueueRemover{client: client}
}

// Remove enqueues deletion of the non-empty keys.
func (r *QueueRemover) Remove(ctx context.Context, keys ...string) error {
	var pending []string
	for _, key := range keys {
		if key != "" {
			pending = append(pending, key)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	_, err := r.client.Enqueue(ctx, RemoveFilesTask{Keys: pending})
	return err
}
