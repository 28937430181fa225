package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/deptline/internal/config"
)

// --- resolve ---

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a department name or description to a phone number",
	Long: `Resolve a department name or description to a phone number.

Examples:
  deptline resolve housing
  deptline resolve "where do I pay tuition"
  deptline resolve bookstore --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		autoConfirm, _ := cmd.Flags().GetBool("yes")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/resolve", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Success       bool     `json:"success"`
			Interpreted   string   `json:"interpreted"`
			Department    string   `json:"department"`
			Phone         string   `json:"phone"`
			Source        string   `json:"source"`
			Error         string   `json:"error"`
			URLs          []string `json:"urls"`
			LowConfidence bool     `json:"lowConfidence"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Success {
			printError("No number found for %q (%s)", query, result.Error)
			return fmt.Errorf("resolution failed")
		}

		fmt.Printf("%s  %s\n", colorize(colorBold, result.Department), result.Phone)
		fmt.Printf("  source: %s\n", result.Source)
		if result.LowConfidence {
			printWarning("Low confidence: multiple candidates, picked the first one found")
		}

		// Cache and directory answers are already stored; web answers need
		// user confirmation before they are.
		if result.Source != "web" {
			return nil
		}

		confirmed := autoConfirm
		if !autoConfirm {
			fmt.Fprintf(os.Stderr, "Store this number for %q? [y/N] ", result.Department)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			confirmed = answer == "y" || answer == "yes"
		}

		vresp, err := client.post(cmd.Context(), "/validate", map[string]any{
			"query":      query,
			"department": result.Department,
			"phone":      result.Phone,
			"confirmed":  confirmed,
		})
		if err != nil {
			return err
		}
		var vresult map[string]bool
		if err := decodeJSON(vresp, &vresult); err != nil {
			return err
		}

		if confirmed {
			printSuccess("Stored %s = %s", result.Department, result.Phone)
		} else {
			printWarning("Discarded — the number was not stored")
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().Bool("yes", false, "store web answers without asking")
}

// --- departments ---

var departmentsCmd = &cobra.Command{
	Use:   "departments",
	Short: "Manage the department directory",
}

var departmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known departments",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/departments")
		if err != nil {
			return err
		}

		var body struct {
			Departments []struct {
				Name        string   `json:"name"`
				PhoneNumber string   `json:"phoneNumber"`
				Aliases     []string `json:"aliases"`
			} `json:"departments"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Departments) == 0 {
			fmt.Println("No departments stored.")
			return nil
		}

		for _, d := range body.Departments {
			fmt.Printf("%s  %s\n", colorize(colorBold, d.Name), d.PhoneNumber)
			if len(d.Aliases) > 0 {
				fmt.Printf("  aliases: %s\n", strings.Join(d.Aliases, ", "))
			}
		}
		return nil
	},
}

var departmentsAddCmd = &cobra.Command{
	Use:   "add <name> <phone>",
	Short: "Add or update a department",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, phone := args[0], args[1]
		aliasesStr, _ := cmd.Flags().GetString("aliases")

		var aliases []string
		if aliasesStr != "" {
			aliases = strings.Split(aliasesStr, ",")
			for i := range aliases {
				aliases[i] = strings.TrimSpace(aliases[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"name": name, "phoneNumber": phone}
		if aliases != nil {
			req["aliases"] = aliases
		}
		resp, err := client.post(cmd.Context(), "/departments", req)
		if err != nil {
			return err
		}
		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Stored %s", name)
		return nil
	},
}

func init() {
	departmentsAddCmd.Flags().String("aliases", "", "comma-separated alternative names")
	departmentsCmd.AddCommand(departmentsListCmd)
	departmentsCmd.AddCommand(departmentsAddCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolution attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/resolutions?limit=%d", limit))
		if err != nil {
			return err
		}

		var body struct {
			Resolutions []struct {
				ID            string `json:"id"`
				CreatedAt     string `json:"createdAt"`
				Query         string `json:"query"`
				Found         bool   `json:"found"`
				Phone         string `json:"phone"`
				Source        string `json:"source"`
				Reason        string `json:"reason"`
				LowConfidence bool   `json:"lowConfidence"`
			} `json:"resolutions"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Resolutions) == 0 {
			fmt.Println("No resolutions recorded.")
			return nil
		}

		for _, r := range body.Resolutions {
			query := r.Query
			if len(query) > 60 {
				query = query[:60] + "..."
			}
			outcome := colorize(colorRed, "miss")
			detail := r.Reason
			if r.Found {
				outcome = colorize(colorGreen, r.Source)
				detail = r.Phone
				if r.LowConfidence {
					detail += " (low confidence)"
				}
			}
			fmt.Printf("%s  %s  %-8s %s  %s\n",
				colorize(colorCyan, r.ID[:8]),
				r.CreatedAt,
				outcome,
				query,
				detail,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of records to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
