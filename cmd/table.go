package main

import (
	"fmt"
	"io"

	"github.com/ProZsolt/salt"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printBills(w io.Writer, bills salt.Bills) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Period", "Price", "Due", "File"})
	for _, b := range bills {
		t.AppendRow(table.Row{
			fmt.Sprintf("%s - %s", b.Period.Start, b.Period.End),
			fmt.Sprintf("%.2f", b.Price),
			b.DueDate.String(),
			b.FileName(),
		})
	}
	t.Render()
}
