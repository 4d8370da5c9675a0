//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package viz renders a scheduler's agent/connection topology: an
// ASCII tree for terminal inspection, and Graphviz DOT (plus
// `dot`-binary invocation) for image export.
package viz

import (
	"fmt"
	"io"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/scheduler"
)

// Print renders sch's agents and their output connections as an
// ASCII tree to w, in registration order. Every agent appears at the
// top level exactly once, even pure sinks with no outgoing
// connections, so the listing is total over the pipeline. A
// connection targeting a non-default input port is suffixed with
// "@<port_name>".
func Print(w io.Writer, sch *scheduler.Scheduler) error {
	for _, a := range sch.Agents() {
		if _, err := fmt.Fprintln(w, a.UUID()); err != nil {
			return err
		}
		conns := a.OutputPort().Connections()
		for i, c := range conns {
			branch := "├─▶"
			if i == len(conns)-1 {
				branch = "└─▶"
			}
			label := c.TargetAgentUUID
			if c.Target.Name() != agent.DefaultInputPort {
				label = fmt.Sprintf("%s@%s", label, c.Target.Name())
			}
			if _, err := fmt.Fprintf(w, "%s %s\n", branch, label); err != nil {
				return err
			}
		}
	}
	return nil
}
