package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradesim/pkg/types"
)

// saveRetries bounds optimistic-lock retries when concurrent writers race on
// the same index key.
const saveRetries = 5

// Store is a keyed task store over Redis: objects live under
// {prefix}:obj:{id}, a unique secondary index maps {prefix}:index:{file_name}
// to the id, and ids come from a monotonic {prefix}:counter.
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// Config holds configuration for the task store.
type Config struct {
	Client *redis.Client
	Prefix string
	Logger *zap.Logger
}

// New creates a task store.
func New(cfg *Config) *Store {
	return &Store{
		client: cfg.Client,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
	}
}

func (s *Store) objKey(id int64) string     { return fmt.Sprintf("%s:obj:%d", s.prefix, id) }
func (s *Store) indexKey(key string) string { return s.prefix + ":index:" + key }
func (s *Store) counterKey() string         { return s.prefix + ":counter" }

// MessageChannel returns the pub/sub channel name for a task.
func (s *Store) MessageChannel(id int64) string {
	return fmt.Sprintf("%s:messages:%d", s.prefix, id)
}

// NewTask allocates a fresh id from the counter and returns an in-memory
// task. The task is not persisted until Save.
func (s *Store) NewTask(ctx context.Context) (*types.Task, error) {
	id, err := s.client.Incr(ctx, s.counterKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate task id: %w", err)
	}
	return &types.Task{ID: id}, nil
}

// Save persists the task and maintains the unique secondary index. Pointing
// an index entry at a different id fails with types.ErrDuplicateKey; moving
// a task to a new key deletes the old index entry in the same transaction.
func (s *Store) Save(ctx context.Context, task *types.Task) error {
	if task.ID <= 0 {
		return fmt.Errorf("task has no id")
	}
	if task.Key() == "" {
		return fmt.Errorf("task %d has no key", task.ID)
	}

	blob, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %d: %w", task.ID, err)
	}

	newIndex := s.indexKey(task.Key())

	txn := func(tx *redis.Tx) error {
		// Reject a key owned by another task.
		owner, err := tx.Get(ctx, newIndex).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read index: %w", err)
		}
		if err == nil {
			ownerID, convErr := strconv.ParseInt(owner, 10, 64)
			if convErr != nil {
				return fmt.Errorf("corrupt index %s: %w", newIndex, convErr)
			}
			if ownerID != task.ID {
				return fmt.Errorf("%w: %q belongs to task %d", types.ErrDuplicateKey, task.Key(), ownerID)
			}
		}

		// A key change must drop the old index entry atomically.
		var oldIndex string
		prev, err := tx.Get(ctx, s.objKey(task.ID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read previous object: %w", err)
		}
		if err == nil {
			var prevTask types.Task
			if unmarshalErr := json.Unmarshal([]byte(prev), &prevTask); unmarshalErr == nil {
				if prevTask.Key() != "" && prevTask.Key() != task.Key() {
					oldIndex = s.indexKey(prevTask.Key())
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.objKey(task.ID), blob, 0)
			pipe.Set(ctx, newIndex, strconv.FormatInt(task.ID, 10), 0)
			if oldIndex != "" {
				pipe.Del(ctx, oldIndex)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < saveRetries; attempt++ {
		err = s.client.Watch(ctx, txn, newIndex, s.objKey(task.ID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}

		s.logger.Debug("task-saved",
			zap.Int64("task-id", task.ID),
			zap.String("key", task.Key()))
		return nil
	}

	return fmt.Errorf("save task %d: %w", task.ID, redis.TxFailedErr)
}

// Load retrieves a task by id.
func (s *Store) Load(ctx context.Context, id int64) (*types.Task, error) {
	blob, err := s.client.Get(ctx, s.objKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("task %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", id, err)
	}

	var task types.Task
	err = json.Unmarshal([]byte(blob), &task)
	if err != nil {
		return nil, fmt.Errorf("unmarshal task %d: %w", id, err)
	}
	return &task, nil
}

// LoadByKey retrieves a task through the secondary index.
func (s *Store) LoadByKey(ctx context.Context, key string) (*types.Task, error) {
	raw, err := s.client.Get(ctx, s.indexKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %q: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve key %q: %w", key, err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt index for %q: %w", key, err)
	}
	return s.Load(ctx, id)
}

// List enumerates all stored tasks, ordered by id.
func (s *Store) List(ctx context.Context) ([]*types.Task, error) {
	var tasks []*types.Task

	iter := s.client.Scan(ctx, 0, s.prefix+":obj:*", 100).Iterator()
	for iter.Next(ctx) {
		blob, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", iter.Val(), err)
		}

		var task types.Task
		err = json.Unmarshal([]byte(blob), &task)
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", iter.Val(), err)
		}
		tasks = append(tasks, &task)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Delete removes a task and its index entry.
func (s *Store) Delete(ctx context.Context, id int64) error {
	task, err := s.Load(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.objKey(id))
		pipe.Del(ctx, s.indexKey(task.Key()))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	s.logger.Debug("task-deleted", zap.Int64("task-id", id))
	return nil
}

// SendMessage publishes a MESSAGE envelope on the task's pub/sub channel.
func (s *Store) SendMessage(ctx context.Context, id int64, level types.MessageLevel, text string) error {
	envelope := types.Message{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   text,
	}

	blob, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = s.client.Publish(ctx, s.MessageChannel(id), blob).Err()
	if err != nil {
		return fmt.Errorf("publish message for task %d: %w", id, err)
	}

	MessagesPublishedTotal.Inc()
	return nil
}

// SendEvent publishes an EVENT envelope on the task's pub/sub channel.
func (s *Store) SendEvent(ctx context.Context, id int64, event string, data map[string]any) error {
	envelope := types.Event{
		Timestamp: time.Now().UTC(),
		Type:      event,
		Data:      data,
	}

	blob, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.client.Publish(ctx, s.MessageChannel(id), blob).Err()
	if err != nil {
		return fmt.Errorf("publish event for task %d: %w", id, err)
	}

	EventsPublishedTotal.Inc()
	return nil
}
