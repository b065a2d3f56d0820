package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/viewer"
)

var (
	app    = kingpin.New("sprintdeck", "Sprint dashboard client")
	server = app.Flag("server", "Server base URL").Default("http://localhost:3200").String()
	apiKey = app.Flag("api-key", "API key for mutating requests").Envar("SPRINTDECK_API_KEY").String()

	watchCmd = app.Command("watch", "Stream live board events")

	tasksCmd = app.Command("tasks", "Task commands")

	tasksListCmd = tasksCmd.Command("list", "List tasks")

	tasksCreateCmd   = tasksCmd.Command("create", "Create a task")
	tasksCreateTitle = tasksCreateCmd.Arg("title", "Task title").Required().String()
	tasksCreateType  = tasksCreateCmd.Flag("type", "Task type").Default("other").String()

	tasksMoveCmd    = tasksCmd.Command("move", "Move a task to another status")
	tasksMoveID     = tasksMoveCmd.Arg("id", "Task ID").Required().Int()
	tasksMoveStatus = tasksMoveCmd.Arg("status", "New status").Required().String()

	sprintsCmd     = app.Command("sprints", "Sprint commands")
	sprintsListCmd = sprintsCmd.Command("list", "List sprints")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cache := viewer.NewCache()
	client := viewer.NewClient(*server, *apiKey, cache)

	var err error
	switch command {
	case watchCmd.FullCommand():
		err = runWatch(ctx, cache)
	case tasksListCmd.FullCommand():
		err = runTasksList(ctx, client)
	case tasksCreateCmd.FullCommand():
		err = runTasksCreate(ctx, client)
	case tasksMoveCmd.FullCommand():
		err = runTasksMove(ctx, client)
	case sprintsListCmd.FullCommand():
		err = runSprintsList(ctx, client)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runWatch(ctx context.Context, cache *viewer.Cache) error {
	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	session, err := viewer.Dial(ctx, wsURL, cache, viewer.WithHandler(printEvent))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", wsURL, err)
	}
	defer session.Close()

	<-ctx.Done()
	return nil
}

func printEvent(env event.IncomingEnvelope) {
	switch env.Type {
	case event.KindConnected:
		color.Green("connected")
	case event.KindPong:
	default:
		data := string(env.Data)
		if len(data) > 120 {
			data = data[:117] + "..."
		}
		fmt.Printf("%s %s\n", color.CyanString(string(env.Type)), data)
	}
}

func runTasksList(ctx context.Context, client *viewer.Client) error {
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		fmt.Printf("%4d %-12s %-14s %s\n", t.ID, statusColor(t.Status), t.Type, t.Title)
	}
	return nil
}

func runTasksCreate(ctx context.Context, client *viewer.Client) error {
	t, err := client.CreateTask(ctx, map[string]string{
		"title": *tasksCreateTitle,
		"type":  *tasksCreateType,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created task %d\n", t.ID)
	return nil
}

func runTasksMove(ctx context.Context, client *viewer.Client) error {
	status := model.TaskStatus(*tasksMoveStatus)
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", *tasksMoveStatus)
	}
	t, err := client.MoveTask(ctx, *tasksMoveID, status)
	if err != nil {
		return err
	}
	fmt.Printf("task %d is now %s\n", t.ID, t.Status)
	return nil
}

func runSprintsList(ctx context.Context, client *viewer.Client) error {
	sprints, err := client.ListSprints(ctx)
	if err != nil {
		return err
	}
	for _, s := range sprints {
		name := s.Name
		if s.IsActive {
			name = color.GreenString("%s (active)", s.Name)
		}
		fmt.Printf("%4d %s  %s - %s\n", s.ID, name, s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
	}
	return nil
}

func statusColor(s model.TaskStatus) string {
	switch s {
	case model.TaskStatusDone:
		return color.GreenString(string(s))
	case model.TaskStatusInProgress:
		return color.YellowString(string(s))
	case model.TaskStatusReview:
		return color.CyanString(string(s))
	default:
		return string(s)
	}
}
