package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/i18n"
)

// todoListKey is the configuration key holding the selected list ID.
const todoListKey = "todo.list_id"

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "List your Microsoft To Do lists",
	Long: `List the To Do lists of the signed-in Microsoft account. The selected
list, marked with *, receives captured tasks.

Examples:
  tasklift lists
  tasklift lists --select AAMkADU3...
  tasklift lists --select "Groceries"`,
	Args: cobra.NoArgs,
	RunE: runLists,
}

var listsSelect string

func init() {
	listsCmd.Flags().StringVar(&listsSelect, "select", "", "Select a list by ID or display name")
	rootCmd.AddCommand(listsCmd)
}

func runLists(cmd *cobra.Command, _ []string) error {
	if listBrowser == nil || sender == nil {
		return errors.New("task list service not configured")
	}

	ctx := cmd.Context()
	restoreSessions(ctx)

	lists, err := listBrowser.Lists(ctx)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		cmd.Println(i18n.T("No task lists found."))
		return nil
	}

	if listsSelect != "" {
		list, ok := findList(lists, listsSelect)
		if !ok {
			return errors.New(i18n.T("No task list matches %q.", listsSelect))
		}
		if err := selectList(list); err != nil {
			return err
		}
		cmd.Println(i18n.T("Selected list %s.", list.DisplayName))
		return nil
	}

	if sender.Target(domain.DestinationTodo) == "" {
		if err := selectList(lists[0]); err != nil {
			return err
		}
	}

	selected := sender.Target(domain.DestinationTodo)
	for _, l := range lists {
		marker := " "
		if l.ID == selected {
			marker = "*"
		}
		cmd.Printf("%s %s\t%s\n", marker, l.DisplayName, l.ID)
	}
	return nil
}

// ensureListSelected picks the first list when none is configured yet.
func ensureListSelected(ctx context.Context, cmd *cobra.Command) error {
	if listBrowser == nil || sender == nil || sender.Target(domain.DestinationTodo) != "" {
		return nil
	}

	lists, err := listBrowser.Lists(ctx)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return nil
	}
	if err := selectList(lists[0]); err != nil {
		return err
	}
	cmd.Println(i18n.T("Tasks will be added to the list %s.", lists[0].DisplayName))
	return nil
}

func selectList(list domain.TaskList) error {
	sender.SetTarget(domain.DestinationTodo, list.ID)
	if configService == nil {
		return nil
	}
	return configService.Set(todoListKey, list.ID)
}

func findList(lists []domain.TaskList, query string) (domain.TaskList, bool) {
	for _, l := range lists {
		if l.ID == query {
			return l, true
		}
	}
	for _, l := range lists {
		if strings.EqualFold(l.DisplayName, query) {
			return l, true
		}
	}
	return domain.TaskList{}, false
}
