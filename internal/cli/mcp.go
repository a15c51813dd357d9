package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcliao/ecce/internal/claudejson"
	"github.com/rcliao/ecce/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server management",
	}

	installCmd := &cobra.Command{
		Use:   "install [name]",
		Short: "Install an MCP server to ~/.claude.json",
		Args:  cobra.ExactArgs(1),
		Run:   runMCPInstall,
	}
	installCmd.Flags().BoolP("global", "g", false, "Install globally instead of project-specific")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall [name]",
		Short: "Uninstall an MCP server from ~/.claude.json",
		Args:  cobra.ExactArgs(1),
		Run:   runMCPUninstall,
	}
	uninstallCmd.Flags().BoolP("global", "g", false, "Uninstall from the global scope instead of project-specific")

	mcpCmd.AddCommand(
		&cobra.Command{
			Use:   "add [name] [json]",
			Short: "Add an MCP server to ecce config",
			Long:  `Add an MCP server registration. The config is arbitrary JSON, e.g. '{"command": "bun", "args": ["run", "server.ts"]}'.`,
			Args:  cobra.ExactArgs(2),
			Run:   runMCPAdd,
		},
		&cobra.Command{
			Use:     "remove [name]",
			Aliases: []string{"rm"},
			Short:   "Remove an MCP server from ecce config",
			Args:    cobra.ExactArgs(1),
			Run:     runMCPRemove,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List MCP servers in ecce config",
			Run:   runMCPList,
		},
		installCmd,
		uninstallCmd,
		&cobra.Command{
			Use:   "status",
			Short: "Show MCP servers installed in ~/.claude.json",
			Run:   runMCPStatus,
		},
	)

	RootCmd.AddCommand(mcpCmd)
}

func runMCPAdd(cmd *cobra.Command, args []string) {
	name, configJSON := args[0], args[1]
	if !json.Valid([]byte(configJSON)) {
		exitErr("add mcp server", fmt.Errorf(`invalid JSON; example: '{"command": "bun", "args": ["run", "server.ts"]}'`))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	err = s.PutMCPServer(cmd.Context(), model.MCPServer{
		Name:   name,
		Config: json.RawMessage(configJSON),
	})
	if err != nil {
		exitErr("add mcp server", err)
	}
	fmt.Printf("✓ Added MCP server '%s'\n", name)
	fmt.Printf("  Run 'ecce mcp install %s' to install it to Claude Code\n", name)
}

func runMCPRemove(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.DeleteMCPServer(cmd.Context(), args[0])
	if err != nil {
		exitErr("remove mcp server", err)
	}
	if ok {
		fmt.Printf("✓ Removed MCP server '%s'\n", args[0])
	} else {
		fmt.Printf("! MCP server '%s' not found\n", args[0])
	}
}

func runMCPList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	servers, err := s.ListMCPServers(cmd.Context())
	if err != nil {
		exitErr("list mcp servers", err)
	}
	if len(servers) == 0 {
		fmt.Println("No MCP servers configured.")
		fmt.Println("Use 'ecce mcp add <name> <json>' to add one.")
		return
	}

	fmt.Println("MCP Servers in ecce config:")
	for _, srv := range servers {
		var pretty bytes.Buffer
		json.Indent(&pretty, srv.Config, "    ", "  ")
		fmt.Printf("\n  %s\n    %s\n", srv.Name, pretty.String())
	}
}

func runMCPInstall(cmd *cobra.Command, args []string) {
	global, _ := cmd.Flags().GetBool("global")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	server, err := s.GetMCPServer(cmd.Context(), args[0])
	if err != nil {
		exitErr("install mcp server", err)
	}

	path, err := claudejson.Path()
	if err != nil {
		exitErr("install mcp server", err)
	}
	cfg, err := claudejson.Load(path)
	if err != nil {
		exitErr("install mcp server", err)
	}

	project := ""
	if !global {
		if project, err = os.Getwd(); err != nil {
			exitErr("install mcp server", err)
		}
	}

	if err := claudejson.Install(cfg, server.Name, server.Config, project); err != nil {
		exitErr("install mcp server", err)
	}
	if err := claudejson.Save(path, cfg); err != nil {
		exitErr("install mcp server", err)
	}

	if global {
		fmt.Printf("✓ Installed '%s' globally to ~/.claude.json\n", server.Name)
	} else {
		fmt.Printf("✓ Installed '%s' to ~/.claude.json for project:\n  %s\n", server.Name, project)
	}
	fmt.Println("\nRestart Claude Code to load the MCP server.")
}

func runMCPUninstall(cmd *cobra.Command, args []string) {
	global, _ := cmd.Flags().GetBool("global")
	name := args[0]

	path, err := claudejson.Path()
	if err != nil {
		exitErr("uninstall mcp server", err)
	}
	cfg, err := claudejson.Load(path)
	if err != nil {
		exitErr("uninstall mcp server", err)
	}

	project := ""
	if !global {
		if project, err = os.Getwd(); err != nil {
			exitErr("uninstall mcp server", err)
		}
	}

	if !claudejson.Uninstall(cfg, name, project) {
		if global {
			fmt.Printf("! '%s' not found in global ~/.claude.json mcpServers\n", name)
		} else {
			fmt.Printf("! '%s' not found in ~/.claude.json for project:\n  %s\n", name, project)
		}
		return
	}
	if err := claudejson.Save(path, cfg); err != nil {
		exitErr("uninstall mcp server", err)
	}

	if global {
		fmt.Printf("✓ Uninstalled '%s' globally from ~/.claude.json\n", name)
	} else {
		fmt.Printf("✓ Uninstalled '%s' from ~/.claude.json for project:\n  %s\n", name, project)
	}
	fmt.Println("\nRestart Claude Code to apply changes.")
}

func runMCPStatus(cmd *cobra.Command, args []string) {
	path, err := claudejson.Path()
	if err != nil {
		exitErr("mcp status", err)
	}
	cfg, err := claudejson.Load(path)
	if err != nil {
		exitErr("mcp status", err)
	}

	fmt.Println("Ecce MCP Status")

	fmt.Println("\nGlobal MCP Servers in ~/.claude.json:")
	printServerNames(claudejson.Servers(cfg, ""))

	project, err := os.Getwd()
	if err != nil {
		exitErr("mcp status", err)
	}
	fmt.Println("\nProject MCP Servers in ~/.claude.json:")
	fmt.Printf("  %s\n", project)
	printServerNames(claudejson.Servers(cfg, project))
}

func printServerNames(names []string) {
	if len(names) == 0 {
		fmt.Println("  None")
		return
	}
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
}
