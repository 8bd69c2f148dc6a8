package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Manage named tracker profiles",
	GroupID: "system",
	// Profile subcommands only touch the profiles file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], strings.TrimRight(args[1], "/")
		user, _ := cmd.Flags().GetString("user")
		token, _ := cmd.Flags().GetString("token")
		graphConfig, _ := cmd.Flags().GetString("graph-config")

		pc, err := loadProfiles()
		if err != nil {
			return err
		}
		pc.Profiles[name] = Profile{URL: url, User: user, Token: token, GraphConfig: graphConfig}
		if pc.Active == "" {
			pc.Active = name
		}
		if err := saveProfiles(pc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %q added (%s)\n", name, url)
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		pc, err := loadProfiles()
		if err != nil {
			return err
		}
		if _, ok := pc.Profiles[name]; !ok {
			return fmt.Errorf("profile %q not found", name)
		}
		delete(pc.Profiles, name)
		if pc.Active == name {
			pc.Active = ""
		}
		if err := saveProfiles(pc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %q removed\n", name)
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := loadProfiles()
		if err != nil {
			return err
		}
		if len(pc.Profiles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no profiles configured")
			return nil
		}
		names := make([]string, 0, len(pc.Profiles))
		for name := range pc.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tUSER\tGRAPH CONFIG")
		for _, name := range names {
			p := pc.Profiles[name]
			marker := "  "
			if name == pc.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, p.URL, p.User, p.GraphConfig)
		}
		return w.Flush()
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		pc, err := loadProfiles()
		if err != nil {
			return err
		}
		if _, ok := pc.Profiles[name]; !ok {
			return fmt.Errorf("profile %q not found", name)
		}
		pc.Active = name
		if err := saveProfiles(pc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active profile set to %q\n", name)
		return nil
	},
}

func init() {
	profileAddCmd.Flags().String("user", "", "tracker user name")
	profileAddCmd.Flags().String("token", "", "tracker password or API token")
	profileAddCmd.Flags().String("graph-config", "", "path to the YAML graph configuration")

	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
}
