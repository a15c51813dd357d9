package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/ecce/internal/agentfile"
	"github.com/rcliao/ecce/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	agentCmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent management",
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new agent",
		Args:  cobra.ExactArgs(1),
		Run:   runAgentAdd,
	}
	addCmd.Flags().StringP("prompt", "p", "", "System prompt for the agent")
	addCmd.Flags().StringP("prompt-file", "f", "", "File containing the system prompt")
	addCmd.Flags().String("description", "", "Description of when to use this agent")
	addCmd.Flags().StringP("context", "c", "", "Context files (comma-separated)")
	addCmd.Flags().StringP("tools", "t", "", "Tools available to the agent (comma-separated)")
	addCmd.Flags().StringP("model", "m", "", "Model to use (sonnet, opus, haiku, or inherit)")
	addCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	exportCmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Export agent(s) to the .claude/agents/ directory",
		Args:  cobra.MaximumNArgs(1),
		Run:   runAgentExport,
	}
	exportCmd.Flags().BoolP("user", "u", false, "Export to user-level directory (~/.claude/agents/)")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import agent(s) from the .claude/agents/ directory",
		Run:   runAgentImport,
	}
	importCmd.Flags().BoolP("user", "u", false, "Import from user-level directory (~/.claude/agents/)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync agents between the config and .claude/agents/",
		Run:   runAgentSync,
	}
	syncCmd.Flags().BoolP("user", "u", false, "Sync with user-level directory (~/.claude/agents/)")
	syncCmd.Flags().String("direction", "import", "Direction: 'import' or 'export'")

	agentCmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List all agents",
			Run:     runAgentList,
		},
		&cobra.Command{
			Use:     "delete [name]",
			Aliases: []string{"rm"},
			Short:   "Delete an agent",
			Args:    cobra.ExactArgs(1),
			Run:     runAgentDelete,
		},
		&cobra.Command{
			Use:   "default [name]",
			Short: "Set the default agent",
			Args:  cobra.ExactArgs(1),
			Run:   runAgentDefault,
		},
		exportCmd,
		importCmd,
		syncCmd,
	)

	RootCmd.AddCommand(agentCmd)
}

// promptFromFlags reads the prompt text from --prompt or --prompt-file.
func promptFromFlags(cmd *cobra.Command) (string, error) {
	prompt, _ := cmd.Flags().GetString("prompt")
	promptFile, _ := cmd.Flags().GetString("prompt-file")

	switch {
	case prompt != "":
		return prompt, nil
	case promptFile != "":
		b, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("either --prompt or --prompt-file must be provided")
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runAgentAdd(cmd *cobra.Command, args []string) {
	systemPrompt, err := promptFromFlags(cmd)
	if err != nil {
		exitErr("add agent", err)
	}
	description, _ := cmd.Flags().GetString("description")
	contextStr, _ := cmd.Flags().GetString("context")
	toolsStr, _ := cmd.Flags().GetString("tools")
	agentModel, _ := cmd.Flags().GetString("model")

	agent := model.Agent{
		Name:         args[0],
		Description:  description,
		SystemPrompt: systemPrompt,
		Model:        agentModel,
	}
	if contextStr != "" {
		agent.ContextFiles = splitCSV(contextStr)
	}
	if toolsStr != "" {
		agent.Tools = splitCSV(toolsStr)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.PutAgent(cmd.Context(), agent); err != nil {
		exitErr("add agent", err)
	}
	fmt.Printf("✓ Agent '%s' added successfully\n", args[0])
}

func runAgentList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	agents, err := s.ListAgents(cmd.Context())
	if err != nil {
		exitErr("list agents", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents configured")
		return
	}

	fmt.Println("Available agents:")
	for _, a := range agents {
		fmt.Printf("  %s\n", a.Name)
		if a.Description != "" {
			fmt.Printf("    Description: %s\n", firstLine(a.Description, 100))
		}
		fmt.Printf("    Prompt: %s\n", firstLine(a.SystemPrompt, 80))
		if len(a.ContextFiles) > 0 {
			fmt.Printf("    Context: %s\n", strings.Join(a.ContextFiles, ", "))
		}
		if len(a.Tools) > 0 {
			fmt.Printf("    Tools: %s\n", strings.Join(a.Tools, ", "))
		}
		if a.Model != "" {
			fmt.Printf("    Model: %s\n", a.Model)
		}
	}
}

func runAgentDelete(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.DeleteAgent(cmd.Context(), args[0])
	if err != nil {
		exitErr("delete agent", err)
	}
	if ok {
		fmt.Printf("✓ Agent '%s' deleted\n", args[0])
	} else {
		fmt.Printf("✗ Agent '%s' not found\n", args[0])
	}
}

func runAgentDefault(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.SetDefaultAgent(cmd.Context(), args[0])
	if err != nil {
		exitErr("set default agent", err)
	}
	if ok {
		fmt.Printf("✓ Default agent set to '%s'\n", args[0])
	} else {
		fmt.Printf("✗ Agent '%s' not found\n", args[0])
	}
}

func agentsDir(userLevel bool) (string, string, error) {
	if userLevel {
		dir, err := agentfile.UserDir()
		return dir, "~/.claude/agents/", err
	}
	dir, err := agentfile.ProjectDir()
	return dir, ".claude/agents/", err
}

func runAgentExport(cmd *cobra.Command, args []string) {
	userLevel, _ := cmd.Flags().GetBool("user")

	dir, location, err := agentsDir(userLevel)
	if err != nil {
		exitErr("export agents", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	ctx := cmd.Context()

	if len(args) > 0 {
		agent, err := s.GetAgent(ctx, args[0])
		if err != nil {
			exitErr("export agent", err)
		}
		if _, err := agentfile.Write(dir, *agent); err != nil {
			exitErr("export agent", err)
		}
		fmt.Printf("✓ Agent '%s' exported to %s\n", args[0], location)
		return
	}

	agents, err := s.ListAgents(ctx)
	if err != nil {
		exitErr("list agents", err)
	}
	for _, a := range agents {
		if _, err := agentfile.Write(dir, a); err != nil {
			exitErr("export agents", err)
		}
	}
	fmt.Printf("✓ Exported %d agent(s) to %s\n", len(agents), location)
	for _, a := range agents {
		fmt.Printf("  - %s\n", a.Name)
	}
}

func runAgentSync(cmd *cobra.Command, args []string) {
	direction, _ := cmd.Flags().GetString("direction")
	switch direction {
	case "import":
		runAgentImport(cmd, nil)
	case "export":
		runAgentExport(cmd, nil)
	default:
		exitErr("sync agents", fmt.Errorf("invalid direction %q: use 'import' or 'export'", direction))
	}
}

func runAgentImport(cmd *cobra.Command, args []string) {
	userLevel, _ := cmd.Flags().GetBool("user")

	dir, location, err := agentsDir(userLevel)
	if err != nil {
		exitErr("import agents", err)
	}

	agents, err := agentfile.ReadDir(dir)
	if err != nil {
		exitErr("import agents", err)
	}
	if len(agents) == 0 {
		fmt.Printf("No agents found in %s\n", location)
		return
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	for _, a := range agents {
		if err := s.PutAgent(cmd.Context(), a); err != nil {
			exitErr("import agents", err)
		}
	}
	fmt.Printf("✓ Imported %d agent(s)\n", len(agents))
	for _, a := range agents {
		fmt.Printf("  - %s\n", a.Name)
	}
}
