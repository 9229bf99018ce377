package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs backlite queues on their own SQLite file so that queue
// churn never contends with shelf writes.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	running bool
}

// NewClient opens (or creates) the queue database next to mainDBPath and
// installs the backlite schema.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}

	db, err := openQueueDB(TasksDBPath(mainDBPath), cfg.Workers)
	if err != nil {
		return nil, err
	}

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create task client: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("install task schema: %w", err)
	}

	return &Client{client: client, db: db, config: cfg}, nil
}

func openQueueDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	// Every worker holds a connection while a task runs; the rest serve enqueues.
	db.SetMaxOpenConns(workers + 4)
	db.SetMaxIdleConns(workers + 1)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// TasksDBPath derives the queue database path: ./bookshelf.db -> ./bookshelf-tasks.db
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	log.Printf("[TASK] queue started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop waits for running tasks until ctx expires and reports whether all
// of them finished.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return true
	}
	c.running = false

	ok := c.client.Stop(ctx)
	if ok {
		log.Printf("[TASK] queue stopped")
	} else {
		log.Printf("[TASK] queue stopped before every task finished")
	}
	return ok
}

// Close releases the queue database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Add starts an enqueue operation; finish it with Save or Tx.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// Started reports whether workers are currently running.
func (c *Client) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
