package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/policyscout/internal/model"
)

var (
	listSearch   string
	listPolicies bool
	listCategory string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored institutions",
	Long: `List the institutions in the local database.

Example:
  policyscout list
  policyscout list --search stanford --policies
  policyscout list --policies --category teaching`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listSearch, "search", "", "only institutions whose name contains this text")
	listCmd.Flags().BoolVar(&listPolicies, "policies", false, "also list each institution's stored policies")
	listCmd.Flags().StringVar(&listCategory, "category", "", "restrict listed policies to one category")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var institutions []model.Institution
	if listSearch != "" {
		institutions, err = store.SearchInstitutions(ctx, listSearch)
	} else {
		institutions, err = store.ListInstitutions(ctx)
	}
	if err != nil {
		return err
	}

	if len(institutions) == 0 {
		fmt.Fprintln(os.Stderr, "No institutions stored. Use 'policyscout research <name> --save' to add one.")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", bold("ID"), bold("NAME"), bold("DOMAIN"), bold("UPDATED"))
	for _, inst := range institutions {
		domain := inst.Domain
		if domain == "" {
			domain = inst.Website
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", inst.ID, inst.Name, domain, inst.LastUpdated.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !listPolicies {
		return nil
	}

	for _, inst := range institutions {
		policies, err := store.ListPolicies(ctx, inst.ID, listCategory)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s (%d policies)\n", bold(inst.Name), len(policies))
		for _, p := range policies {
			fmt.Printf("  - [%s] %s (%s)\n", statusColor(p.Status), p.Title, p.Category)
		}
	}
	return nil
}

func statusColor(s model.PolicyStatus) string {
	switch s {
	case model.StatusActive:
		return color.GreenString(string(s))
	case model.StatusDraft:
		return color.YellowString(string(s))
	case model.StatusArchived:
		return color.HiBlackString(string(s))
	default:
		return string(s)
	}
}
