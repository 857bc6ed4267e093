package cmd

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jmorganca/modalfusion/embedding"
	"github.com/jmorganca/modalfusion/envconfig"
)

func NewLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show the modality fusion order and type ids",
		Args:  cobra.NoArgs,
		RunE:  layoutHandler,
	}
}

func layoutHandler(cmd *cobra.Command, args []string) error {
	p, err := loadParams(cmd)
	if err != nil {
		return err
	}

	tok, err := tokenTable(cmd, envconfig.Seed)
	if err != nil {
		return err
	}

	m, err := embedding.NewMultimodal(p, tok, embedding.Options{Seed: envconfig.Seed})
	if err != nil {
		return err
	}

	var data [][]string
	for i, modality := range m.Modalities() {
		id, _ := m.TypeID(modality.Name)

		size := "-"
		if modality.Size > 0 {
			size = strconv.Itoa(modality.Size)
		}

		data = append(data, []string{strconv.Itoa(i), modality.Name, modality.Type.String(), strconv.Itoa(id), size})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ORDER", "NAME", "TYPE", "TYPE ID", "SIZE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
