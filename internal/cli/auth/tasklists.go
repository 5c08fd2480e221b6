package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/services"
	"github.com/julianstephens/trainsync/internal/services/google"
)

var (
	listTaskLists = remoteTaskLists
	chooseList    = selectTaskList
)

type TasklistsCmd struct {
	Select bool `help:"Choose the task list interactively and save it to the config file."`
}

func (c *TasklistsCmd) Run(ctx *cli.Context) error {
	bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lists, err := listTaskLists(bg, ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to list task lists: %w", err)
	}
	if len(lists) == 0 {
		return errors.New("the signed-in account has no task lists")
	}

	if !c.Select {
		for _, l := range lists {
			marker := " "
			if l.ID == ctx.Config.Google.TaskListID {
				marker = "*"
			}
			ctx.Printf("%s %-32s %s\n", marker, l.Title, l.ID)
		}
		return nil
	}

	id, err := chooseList(lists, ctx.Config.Google.TaskListID)
	if err != nil {
		return err
	}
	if err := config.Set(ctx.ConfigPath, "google.task_list_id", id); err != nil {
		return fmt.Errorf("failed to save task list: %w", err)
	}
	ctx.Config.Google.TaskListID = id
	ctx.Printf("✓ Task list set to %s\n", id)
	return nil
}

func remoteTaskLists(ctx context.Context, cfg config.Config) ([]services.TaskList, error) {
	opt, err := google.ClientOption(ctx, cfg.Google.CredentialsFile, tokenStore)
	if err != nil {
		return nil, err
	}
	return google.ListTaskLists(ctx, opt)
}

func selectTaskList(lists []services.TaskList, current string) (string, error) {
	options := make([]huh.Option[string], 0, len(lists))
	for _, l := range lists {
		options = append(options, huh.NewOption(l.Title, l.ID).Selected(l.ID == current))
	}
	chosen := current
	err := huh.NewSelect[string]().
		Title("Task list for training sessions").
		Options(options...).
		Value(&chosen).
		Run()
	if err != nil {
		return "", err
	}
	return chosen, nil
}
