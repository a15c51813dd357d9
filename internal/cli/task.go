package cli

import (
	"fmt"

	"github.com/rcliao/ecce/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Task template management",
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskAdd,
	}
	addCmd.Flags().StringP("prompt", "p", "", "Task prompt (additional instructions for the agent)")
	addCmd.Flags().StringP("prompt-file", "f", "", "File containing the task prompt")
	addCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	taskCmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List all tasks",
			Run:     runTaskList,
		},
		&cobra.Command{
			Use:     "delete [name]",
			Aliases: []string{"rm"},
			Short:   "Delete a task",
			Args:    cobra.ExactArgs(1),
			Run:     runTaskDelete,
		},
	)

	RootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) {
	template, err := promptFromFlags(cmd)
	if err != nil {
		exitErr("add task", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.PutTask(cmd.Context(), model.Task{Name: args[0], Template: template}); err != nil {
		exitErr("add task", err)
	}
	fmt.Printf("✓ Task '%s' added successfully\n", args[0])
}

func runTaskList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tasks, err := s.ListTasks(cmd.Context())
	if err != nil {
		exitErr("list tasks", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks configured")
		return
	}

	fmt.Println("Available tasks:")
	for _, t := range tasks {
		fmt.Printf("  %s\n", t.Name)
		fmt.Printf("    Prompt: %s\n", firstLine(t.Template, 100))
	}
}

func runTaskDelete(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.DeleteTask(cmd.Context(), args[0])
	if err != nil {
		exitErr("delete task", err)
	}
	if ok {
		fmt.Printf("✓ Task '%s' deleted\n", args[0])
	} else {
		fmt.Printf("✗ Task '%s' not found\n", args[0])
	}
}
