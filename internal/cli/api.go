package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rcliao/ecce/internal/envfile"
	"github.com/rcliao/ecce/internal/model"
	"github.com/rcliao/ecce/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	apiCmd := &cobra.Command{
		Use:     "api",
		Aliases: []string{"profile"},
		Short:   "API profile management",
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new profile",
		Args:  cobra.ExactArgs(1),
		Run:   runAPIAdd,
	}
	addCmd.Flags().StringP("url", "u", "", "API URL (required)")
	addCmd.Flags().StringP("key", "k", "", "API key (required)")
	addCmd.Flags().StringP("service", "s", "claude-code", "Service type: claude-code or codex")
	addCmd.MarkFlagRequired("url")
	addCmd.MarkFlagRequired("key")

	switchCmd := &cobra.Command{
		Use:   "switch [name]",
		Short: "Switch to a profile (or the default if no name given)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runAPISwitch,
	}

	apiCmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List all profiles",
			Run:   runAPIList,
		},
		switchCmd,
		&cobra.Command{
			Use:     "delete [name]",
			Aliases: []string{"rm"},
			Short:   "Delete a profile",
			Args:    cobra.ExactArgs(1),
			Run:     runAPIDelete,
		},
		&cobra.Command{
			Use:   "current",
			Short: "Show the active profile",
			Run:   runAPICurrent,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Check connectivity of all profiles",
			Run:   runAPIStatus,
		},
		&cobra.Command{
			Use:   "set-default [name]",
			Short: "Set the default profile",
			Args:  cobra.ExactArgs(1),
			Run:   runAPISetDefault,
		},
		&cobra.Command{
			Use:   "clear-default",
			Short: "Clear the default profile",
			Run:   runAPIClearDefault,
		},
	)

	RootCmd.AddCommand(apiCmd)
}

func runAPIAdd(cmd *cobra.Command, args []string) {
	url, _ := cmd.Flags().GetString("url")
	key, _ := cmd.Flags().GetString("key")
	service, _ := cmd.Flags().GetString("service")

	if !model.ValidServices[service] {
		exitErr("add profile", fmt.Errorf("unknown service type: %s", service))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	err = s.PutProfile(cmd.Context(), model.Profile{
		Name:    args[0],
		URL:     url,
		Key:     key,
		Service: service,
	})
	if err != nil {
		exitErr("add profile", err)
	}
	fmt.Printf("✓ Profile '%s' added successfully\n", args[0])
}

func runAPIList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		exitErr("list profiles", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles configured")
		return
	}

	active, _ := s.ActiveProfile(ctx)
	defaultProfile, _ := s.DefaultProfile(ctx)

	fmt.Println("Available profiles:")
	for _, p := range profiles {
		var markers []string
		if active != nil && active.Name == p.Name {
			markers = append(markers, "active")
		}
		if defaultProfile != nil && defaultProfile.Name == p.Name {
			markers = append(markers, "default")
		}
		marker := ""
		if len(markers) > 0 {
			marker = fmt.Sprintf(" (%s)", strings.Join(markers, ", "))
		}
		fmt.Printf("  %s - %s [%s]%s\n", p.Name, p.URL, p.Service, marker)
	}
}

func runAPISwitch(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	ctx := cmd.Context()

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		defaultProfile, err := s.DefaultProfile(ctx)
		if err != nil {
			exitErr("switch profile", err)
		}
		if defaultProfile != nil {
			name = defaultProfile.Name
		} else {
			name = pickProfile(ctx, s)
			if name == "" {
				return
			}
		}
	}

	ok, err := s.SetActiveProfile(ctx, name)
	if err != nil {
		exitErr("switch profile", err)
	}
	if !ok {
		exitErr("switch profile", fmt.Errorf("profile '%s' not found", name))
	}

	profile, err := s.GetProfile(ctx, name)
	if err != nil {
		exitErr("switch profile", err)
	}
	applyProfile(*profile)
}

// pickProfile offers a numbered selection; empty result means nothing is
// configured.
func pickProfile(ctx context.Context, s store.Store) string {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		exitErr("list profiles", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles configured")
		return ""
	}

	fmt.Println("Available profiles:")
	for i, p := range profiles {
		fmt.Printf("  %d. %s - %s\n", i+1, p.Name, p.URL)
	}
	choice, err := promptChoice("Select profile", 1, len(profiles))
	if err != nil {
		exitErr("select profile", err)
	}
	return profiles[choice-1].Name
}

// applyProfile injects the profile's credentials for its service type.
func applyProfile(p model.Profile) {
	switch p.Service {
	case "claude-code":
		if _, err := envfile.WriteMise(".", p.URL, p.Key); err != nil {
			exitErr("apply profile", err)
		}
		fmt.Println("✓ Environment variables updated in .mise.toml")
		fmt.Println("\nProfile applied:")
		fmt.Printf("  ANTHROPIC_BASE_URL = %s\n", p.URL)
		fmt.Printf("  ANTHROPIC_API_KEY = %s\n", envfile.MaskKey(p.Key))

		installed, activated := envfile.MiseStatus()
		switch {
		case !installed:
			fmt.Println("\n⚠ Warning: mise is not installed or not in PATH")
			fmt.Println("  Install it from https://mise.jdx.dev/ to load the variables.")
		case !activated:
			fmt.Println("\n⚠ Warning: mise is installed but may not be activated in your shell")
			fmt.Println("  Add 'eval \"$(mise activate bash)\"' (or the zsh/fish equivalent) to your shell config.")
		default:
			fmt.Println("\n✓ mise is installed and activated")
			fmt.Println("  Environment variables will be loaded automatically in this directory.")
		}
	case "codex":
		fmt.Println("✓ Codex configuration (placeholder - implement based on Codex config location)")
	default:
		fmt.Printf("⚠ Unknown service type: %s\n", p.Service)
	}
}

func runAPIDelete(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.DeleteProfile(cmd.Context(), args[0])
	if err != nil {
		exitErr("delete profile", err)
	}
	if ok {
		fmt.Printf("✓ Profile '%s' deleted\n", args[0])
	} else {
		fmt.Printf("✗ Profile '%s' not found\n", args[0])
	}
}

func runAPICurrent(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	profile, err := s.ActiveProfile(cmd.Context())
	if err != nil {
		exitErr("current profile", err)
	}
	if profile == nil {
		fmt.Println("No active profile")
		return
	}
	fmt.Println("Current active profile:")
	fmt.Printf("  Name:    %s\n", profile.Name)
	fmt.Printf("  URL:     %s\n", profile.URL)
	fmt.Printf("  Service: %s\n", profile.Service)
	fmt.Printf("  Key:     %s\n", envfile.MaskKey(profile.Key))
}

func runAPIStatus(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	ctx := cmd.Context()

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		exitErr("list profiles", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles configured")
		return
	}

	active, _ := s.ActiveProfile(ctx)

	fmt.Println("Checking connection status for all profiles...")
	fmt.Println()
	for _, p := range profiles {
		marker := ""
		if active != nil && active.Name == p.Name {
			marker = " (active)"
		}
		fmt.Printf("  %s%s [%s] - ", p.Name, marker, p.Service)

		elapsed, err := checkEndpoint(ctx, p.URL, p.Key)
		if err != nil {
			fmt.Printf("✗ Failed: %v\n", err)
			continue
		}
		fmt.Printf("✓ Connected (%dms)\n", elapsed.Milliseconds())
	}
}

// checkEndpoint probes the API URL. A 401 counts as reachable: the
// endpoint answered, only the credentials are in question.
func checkEndpoint(ctx context.Context, url, key string) (time.Duration, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusUnauthorized {
		return elapsed, nil
	}
	return elapsed, fmt.Errorf("HTTP %d", resp.StatusCode)
}

func runAPISetDefault(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.SetDefaultProfile(cmd.Context(), args[0])
	if err != nil {
		exitErr("set default profile", err)
	}
	if ok {
		fmt.Printf("✓ Default profile set to '%s'\n", args[0])
	} else {
		fmt.Printf("✗ Profile '%s' not found\n", args[0])
	}
}

func runAPIClearDefault(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.ClearDefaultProfile(cmd.Context()); err != nil {
		exitErr("clear default profile", err)
	}
	fmt.Println("✓ Default profile cleared")
}
