package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/policy"
)

var partsInput string

var partsCmd = &cobra.Command{
	Use:   "parts",
	Short: "List the atomic parts of a policy document",
	Long: `Encodes the document into the atomic parts the minimizer operates on
	and prints them. Useful for sizing a run (the number of oracle trials grows
	with the part count) and for writing --pin expressions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := policy.Load(partsInput)
		if err != nil {
			return err
		}
		parts, _, err := policy.Encode(doc)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Sid", "Kind", "Value"})
		for i, p := range parts {
			kind := string(p.Kind)
			if p.Kind == policy.KindAction {
				kind = color.CyanString(kind)
			}
			t.AppendRow(table.Row{i + 1, p.Sid, kind, truncate(p.Value, 80)})
		}
		t.AppendFooter(table.Row{"", "", "total", len(parts)})
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(partsCmd)

	partsCmd.Flags().StringVarP(&partsInput, "input", "f", "", "Policy document (JSON)")
	_ = partsCmd.MarkFlagRequired("input")
}
