package cmd

import (
	"bytes"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ListAdapters prints the WebGPU adapters the wgpu backend can run on.
func ListAdapters(ctx *cli.Context) error {
	setupLogging(ctx)

	adapters := renderer.ListAdapters()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Adapter"})
	for i, a := range adapters {
		table.Append([]string{fmt.Sprintf("%02d", i), a})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d adapter(s)", len(adapters))})
	table.Render()

	logger.Noticef("system provides %d WebGPU adapter(s)\n%s", len(adapters), buf.String())
	return nil
}
