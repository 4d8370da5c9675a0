//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/scheduler"
)

const (
	// RankDirLR lays the graph out left to right.
	RankDirLR = "LR"
	// RankDirTB lays the graph out top to bottom.
	RankDirTB = "TB"

	// ImageFormatPNG renders to PNG via the `dot` binary.
	ImageFormatPNG = "png"
	// ImageFormatSVG renders to SVG via the `dot` binary.
	ImageFormatSVG = "svg"
)

const (
	nodeFill   = "#e8f5e9"
	nodeBorder = "#4caf50"
	edgeColor  = "#999999"
)

// VizOptions configures DOT export and rendering.
type VizOptions struct {
	RankDir    string
	GraphLabel string
}

// VizOption mutates VizOptions.
type VizOption func(*VizOptions)

// WithRankDir sets the DOT layout direction ("LR" or "TB"); any other
// value is ignored.
func WithRankDir(dir string) VizOption {
	return func(o *VizOptions) {
		if dir == RankDirLR || dir == RankDirTB {
			o.RankDir = dir
		}
	}
}

// WithGraphLabel sets an optional title shown above the rendered graph.
func WithGraphLabel(label string) VizOption {
	return func(o *VizOptions) { o.GraphLabel = label }
}

func defaultVizOptions() *VizOptions {
	return &VizOptions{RankDir: RankDirLR}
}

// DOT renders sch's agents and connections as Graphviz DOT source.
// Every agent is declared as a node (so sinks appear even with no
// outgoing edges); each connection becomes a directed edge, labeled
// with the target port name when it isn't the default input port.
func DOT(sch *scheduler.Scheduler, opts ...VizOption) string {
	o := defaultVizOptions()
	for _, fn := range opts {
		fn(o)
	}

	var b strings.Builder
	b.WriteString("digraph G {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", escapeIdentifier(o.RankDir))
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\"];\n")
	if o.GraphLabel != "" {
		fmt.Fprintf(&b, "  label=\"%s\";\n  labelloc=t;\n", escapeLabel(o.GraphLabel))
	}

	agents := sch.Agents()
	for _, a := range agents {
		fmt.Fprintf(&b, "  \"%s\" [label=\"%s\", shape=box, style=filled, fillcolor=\"%s\", color=\"%s\"];\n",
			escapeIdentifier(a.UUID()), escapeLabel(a.UUID()), nodeFill, nodeBorder)
	}
	for _, a := range agents {
		for _, c := range a.OutputPort().Connections() {
			if c.Target.Name() != agent.DefaultInputPort {
				fmt.Fprintf(&b, "  \"%s\" -> \"%s\" [color=\"%s\", label=\"%s\"];\n",
					escapeIdentifier(a.UUID()), escapeIdentifier(c.TargetAgentUUID), edgeColor, escapeLabel(c.Target.Name()))
				continue
			}
			fmt.Fprintf(&b, "  \"%s\" -> \"%s\" [color=\"%s\"];\n",
				escapeIdentifier(a.UUID()), escapeIdentifier(c.TargetAgentUUID), edgeColor)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// WriteDOT writes sch's DOT representation to w.
func WriteDOT(w io.Writer, sch *scheduler.Scheduler, opts ...VizOption) error {
	_, err := io.WriteString(w, DOT(sch, opts...))
	return err
}

// RenderImage shells out to the Graphviz `dot` binary to render sch's
// topology to outputPath in the given format ("png", "svg", ...).
// Returns an error if `dot` is not found in PATH or the command fails.
func RenderImage(ctx context.Context, sch *scheduler.Scheduler, format, outputPath string, opts ...VizOption) error {
	if format == "" {
		format = ImageFormatPNG
	}
	dotPath, err := exec.LookPath("dot")
	if err != nil {
		return fmt.Errorf("viz: graphviz 'dot' binary not found in PATH: %w", err)
	}
	cmd := exec.CommandContext(ctx, dotPath, "-T"+format, "-o", outputPath)
	cmd.Stdin = bytes.NewBufferString(DOT(sch, opts...))
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return fmt.Errorf("viz: dot render failed: %w, output: %s", runErr, string(out))
	}
	return nil
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func escapeIdentifier(s string) string {
	return escapeLabel(s)
}
