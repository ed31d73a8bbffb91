package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/yaprak-lang/yaprak/vm"
)

// writeProfile prints the call counts, most called first. Hot functions are
// starred.
func writeProfile(w io.Writer, report []vm.CallProfile) {
	if len(report) == 0 {
		fmt.Fprintln(w, "profile: no calls")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "calls\t  function")
	for _, p := range report {
		hot := " "
		if p.IsHot {
			hot = "*"
		}
		kind := ""
		if p.Native {
			kind = " (native)"
		}
		fmt.Fprintf(tw, "%d\t%s %s%s\n", p.Calls, hot, p.Name, kind)
	}
	tw.Flush()
}
