package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/mcpjungle/mcpbridge/client"
	"github.com/spf13/cobra"
)

var (
	descriptionsCmdSource string
	descriptionsCmdReset  bool
)

var descriptionsCmd = &cobra.Command{
	Use:   "descriptions",
	Short: "Print the tool descriptions meant for an agent's system prompt",
	Long: "Prints the mapping of tool name to usage description that an agent can put in its system prompt.\n" +
		"Built-in descriptions are cached by the server; use --reset to clear that cache.",
	RunE: runDescriptions,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "1",
	},
}

func init() {
	descriptionsCmd.Flags().StringVar(
		&descriptionsCmdSource,
		"source",
		string(client.DescriptionSourceAll),
		fmt.Sprintf(
			"which descriptions to print: '%s', '%s' or '%s'",
			client.DescriptionSourceAll, client.DescriptionSourceBuiltin, client.DescriptionSourceMCP,
		),
	)
	descriptionsCmd.Flags().BoolVar(
		&descriptionsCmdReset,
		"reset",
		false,
		"clear the server's description cache before fetching",
	)
	rootCmd.AddCommand(descriptionsCmd)
}

func runDescriptions(cmd *cobra.Command, args []string) error {
	source := client.DescriptionSource(descriptionsCmdSource)
	switch source {
	case client.DescriptionSourceAll, client.DescriptionSourceBuiltin, client.DescriptionSourceMCP:
	default:
		return fmt.Errorf("invalid source '%s'", descriptionsCmdSource)
	}

	if descriptionsCmdReset {
		if err := apiClient.ResetDescriptions(); err != nil {
			return fmt.Errorf("failed to reset the description cache: %w", err)
		}
	}

	d, err := apiClient.GetDescriptions(source)
	if err != nil {
		return fmt.Errorf("failed to get descriptions: %w", err)
	}
	printDescriptions(cmd.OutOrStdout(), d)
	return nil
}

func printDescriptions(w io.Writer, d map[string]string) {
	if len(d) == 0 {
		fmt.Fprintln(w, "There are no tool descriptions")
		return
	}
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "%s:\n%s\n\n", n, indent(d[n], "  "))
	}
}
