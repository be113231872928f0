// Package v1 defines the types served by the harvester daemon.
package v1

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// FileStatus is the state of one tailed file.
type FileStatus struct {
	// Path is the absolute path of the file.
	Path string `json:"path"`
	// Name is the basename, used as the batch key.
	Name string `json:"name"`
	// Offset is the number of bytes already read.
	Offset int64 `json:"offset"`
	// Size is the file size at the time of the snapshot.
	// It is -1 when the file could not be stat'ed.
	Size int64 `json:"size"`
	// BufferedLines is the number of lines waiting for the next flush.
	BufferedLines int `json:"bufferedLines"`
}

// Status is a point-in-time view of a running harvester.
type Status struct {
	Time metav1.Time `json:"time"`

	Directory         string `json:"directory"`
	LineThreshold     int    `json:"lineThreshold"`
	HeartbeatInterval string `json:"heartbeatInterval"`

	Files []FileStatus `json:"files,omitempty"`
	// Pending maps basenames that have buffered lines but no tailer
	// (e.g., a removed file) to their number of buffered lines.
	Pending map[string]int `json:"pending,omitempty"`
}

// BufferedLines returns the total number of buffered lines.
func (s Status) BufferedLines() int {
	total := 0
	for _, f := range s.Files {
		total += f.BufferedLines
	}
	for _, n := range s.Pending {
		total += n
	}
	return total
}

func (s Status) RenderTable(wr io.Writer) {
	table := tablewriter.NewWriter(wr)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.Append([]string{"Directory", s.Directory})
	table.Append([]string{"Line Threshold", fmt.Sprintf("%d", s.LineThreshold)})
	table.Append([]string{"Heartbeat Interval", s.HeartbeatInterval})
	table.Append([]string{"Files", fmt.Sprintf("%d", len(s.Files))})
	table.Append([]string{"Buffered Lines", fmt.Sprintf("%d", s.BufferedLines())})
	table.Render()

	if len(s.Files) > 0 {
		fmt.Fprintf(wr, "\n")

		ft := tablewriter.NewWriter(wr)
		ft.SetAlignment(tablewriter.ALIGN_CENTER)
		ft.SetHeader([]string{"Name", "Read", "Size", "Unread", "Buffered"})
		for _, f := range s.Files {
			size, unread := "n/a", "n/a"
			if f.Size >= 0 {
				size = humanize.Bytes(uint64(f.Size))
				if f.Size > f.Offset {
					unread = humanize.Bytes(uint64(f.Size - f.Offset))
				} else {
					unread = humanize.Bytes(0)
				}
			}
			ft.Append([]string{
				f.Name,
				humanize.Bytes(uint64(f.Offset)),
				size,
				unread,
				fmt.Sprintf("%d", f.BufferedLines),
			})
		}
		ft.Render()
	}

	if len(s.Pending) > 0 {
		fmt.Fprintf(wr, "\n")

		names := make([]string, 0, len(s.Pending))
		for name := range s.Pending {
			names = append(names, name)
		}
		sort.Strings(names)

		pt := tablewriter.NewWriter(wr)
		pt.SetAlignment(tablewriter.ALIGN_CENTER)
		pt.SetHeader([]string{"Pending (no tailer)", "Buffered"})
		for _, name := range names {
			pt.Append([]string{name, fmt.Sprintf("%d", s.Pending[name])})
		}
		pt.Render()
	}
}
