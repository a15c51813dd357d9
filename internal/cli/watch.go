package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rcliao/ecce/internal/executor"
	"github.com/rcliao/ecce/internal/model"
	"github.com/rcliao/ecce/internal/session"
	"github.com/rcliao/ecce/internal/store"
	"github.com/rcliao/ecce/internal/watcher"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "watch [file|dir]",
		Aliases: []string{"homo"},
		Short:   "Watch a file for ecce prompts and answer them in place",
		Long:    "Watch a Markdown file for ecce trigger markers and replace each one with a generated response. A directory argument resolves to slides.md inside it.",
		Args:    cobra.ExactArgs(1),
		Run:     runWatch,
	}

	cmd.Flags().StringP("agent", "a", "", "Agent to use (default: configured default agent)")
	cmd.Flags().StringP("task", "t", "", "Task template to use")
	cmd.Flags().Duration("interval", 100*time.Millisecond, "Poll interval")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	agentName, _ := cmd.Flags().GetString("agent")
	taskName, _ := cmd.Flags().GetString("task")
	interval, _ := cmd.Flags().GetDuration("interval")

	filePath, err := resolveWatchPath(args[0])
	if err != nil {
		exitErr("resolve path", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()

	agent, err := selectAgent(ctx, s, agentName)
	if err != nil {
		exitErr("select agent", err)
	}
	task, err := selectTask(ctx, s, taskName)
	if err != nil {
		exitErr("select task", err)
	}

	executable, err := s.ClaudeExecutable(ctx)
	if err != nil {
		exitErr("load config", err)
	}

	w, err := watcher.NewWithInterval(filePath, interval)
	if err != nil {
		exitErr("watch", err)
	}

	taskDisplay := "(none)"
	if task != nil {
		taskDisplay = task.Name
	}
	fmt.Println("\n🎭 Ecce Homo - File Watcher Started")
	fmt.Println(strings.Repeat("═", 60))
	fmt.Printf("  📄 File:     %s\n", filePath)
	fmt.Printf("  🤖 Agent:    %s\n", agent.Name)
	fmt.Printf("  📋 Task:     %s\n", taskDisplay)
	fmt.Println(strings.Repeat("═", 60))
	fmt.Println("\n👀 Watching for patterns...")
	fmt.Println("   Pattern 1: ecce <prompt> ecce")
	fmt.Println("   Pattern 2: ```ecce\\n<prompt>\\n```")
	fmt.Printf("   Interval:  %s\n", interval)
	fmt.Println("\n   Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(filePath, w, executor.NewClaude(executable, *agent, task), session.Options{
		Journal: s,
		Out:     os.Stdout,
	})
	if err := sess.Run(ctx); err != nil {
		exitErr("watch", err)
	}

	fmt.Println("\n👋 Stopped watching file. Goodbye!")
}

// resolveWatchPath accepts a file, or a directory containing slides.md.
func resolveWatchPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if !info.IsDir() {
		return path, nil
	}

	slides := filepath.Join(path, "slides.md")
	if _, err := os.Stat(slides); err != nil {
		return "", fmt.Errorf("directory provided but slides.md not found in: %s", path)
	}
	fmt.Printf("📁 Found slides.md in directory: %s\n", path)
	return slides, nil
}

// selectAgent resolves the agent by flag, configured default, or a
// numbered prompt over the configured agents.
func selectAgent(ctx context.Context, s store.Store, name string) (*model.Agent, error) {
	if name != "" {
		return s.GetAgent(ctx, name)
	}

	if agent, err := s.DefaultAgent(ctx); err != nil {
		return nil, err
	} else if agent != nil {
		return agent, nil
	}

	agents, err := s.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents configured; use 'ecce agent add' to create an agent first")
	}

	fmt.Println("\n🤖 Available agents:")
	for i, a := range agents {
		fmt.Printf("  %d. %s - %s\n", i+1, a.Name, firstLine(a.SystemPrompt, 50))
	}
	choice, err := promptChoice("Select agent", 1, len(agents))
	if err != nil {
		return nil, err
	}
	return &agents[choice-1], nil
}

// selectTask resolves the task by flag, or a numbered prompt over the
// configured tasks (0 = none). No tasks configured means no task.
func selectTask(ctx context.Context, s store.Store, name string) (*model.Task, error) {
	if name != "" {
		return s.GetTask(ctx, name)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	fmt.Println("\n📋 Available tasks:")
	fmt.Println("  0. (No task - use default)")
	for i, t := range tasks {
		fmt.Printf("  %d. %s - %s\n", i+1, t.Name, firstLine(t.Template, 50))
	}
	choice, err := promptChoice("Select task", 0, len(tasks))
	if err != nil {
		return nil, err
	}
	if choice == 0 {
		return nil, nil
	}
	return &tasks[choice-1], nil
}
