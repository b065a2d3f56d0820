package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

// Client is the request/response side of a viewer: a thin REST client that
// shares the session's cache.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *Cache
}

func NewClient(baseURL, apiKey string, cache *Cache) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    http.DefaultClient,
		cache:   cache,
	}
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	c.cache.Set(TasksKey, tasks)
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodGet, TaskKey(id), nil, &t); err != nil {
		return nil, err
	}
	c.cache.Set(TaskKey(id), &t)
	return &t, nil
}

func (c *Client) ListSprints(ctx context.Context) ([]model.Sprint, error) {
	var sprints []model.Sprint
	if err := c.do(ctx, http.MethodGet, "/api/sprints", nil, &sprints); err != nil {
		return nil, err
	}
	c.cache.Set(SprintsKey, sprints)
	return sprints, nil
}

func (c *Client) CreateTask(ctx context.Context, body any) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MoveTask updates a task's status optimistically: the cache shows the move
// immediately, commits on server confirmation, and rolls back to the
// pre-move value if the request fails.
func (c *Client) MoveTask(ctx context.Context, id int, status model.TaskStatus) (*model.Task, error) {
	key := TaskKey(id)
	if cached, ok := c.cache.Get(key); ok {
		if t, ok := cached.(*model.Task); ok {
			moved := *t
			moved.Status = status
			c.cache.StagePending(key, &moved)
		}
	}

	var updated model.Task
	err := c.do(ctx, http.MethodPatch, key+"/status", map[string]model.TaskStatus{"status": status}, &updated)
	if err != nil {
		c.cache.Rollback(key)
		return nil, err
	}
	c.cache.Commit(key)
	c.cache.Set(key, &updated)
	return &updated, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
