package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

type entryReport struct {
	State string           `json:"state"`
	Data  any              `json:"data,omitempty"`
	Type  any              `json:"type,omitempty"`
	Error *flow.EntryError `json:"error,omitempty"`
}

type nodeReport struct {
	ID          string            `json:"id"`
	Meta        string            `json:"meta"`
	InputState  string            `json:"inputState"`
	OutputState string            `json:"outputState"`
	Success     string            `json:"success"`
	Influence   map[string]string `json:"influence,omitempty"`
	Failures    map[string]string `json:"failures,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type flowReport struct {
	Success string                 `json:"success"`
	Nodes   []nodeReport           `json:"nodes"`
	Outputs map[string]entryReport `json:"outputs,omitempty"`
}

func newEntryReport(rt flow.EntryRuntime) entryReport {
	r := entryReport{State: string(rt.State), Error: rt.Err}
	switch rt.State {
	case flow.EntryDataReady:
		r.Data = rt.Data
	case flow.EntryTypeReady:
		r.Type = schema.TypeValue(rt.Type)
	}
	return r
}

func newFlowReport(result *engine.FlowResult) flowReport {
	report := flowReport{Success: result.Success.String()}
	for _, id := range result.Order {
		n := result.Nodes[id]
		if n == nil {
			continue
		}
		nr := nodeReport{
			ID:          n.NodeID,
			Meta:        n.MetaID,
			InputState:  string(n.InputState),
			OutputState: string(n.OutputState),
			Success:     n.Success.String(),
			Failures:    n.Failures,
			Error:       n.Error,
		}
		if len(n.Influence) > 0 {
			nr.Influence = make(map[string]string, len(n.Influence))
			for name, state := range n.Influence {
				nr.Influence[name] = string(state)
			}
		}
		report.Nodes = append(report.Nodes, nr)
	}
	if len(result.Outputs) > 0 {
		report.Outputs = make(map[string]entryReport, len(result.Outputs))
		for name, rt := range result.Outputs {
			report.Outputs[name] = newEntryReport(rt)
		}
	}
	return report
}

func writeJSON(w io.Writer, result *engine.FlowResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newFlowReport(result))
}

func writeText(w io.Writer, result *engine.FlowResult) error {
	report := newFlowReport(result)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tMETA\tINPUTS\tOUTPUTS\tSUCCESS\tDETAIL")
	for _, n := range report.Nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", n.ID, n.Meta, n.InputState, n.OutputState, n.Success, detail(n))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	names := make([]string, 0, len(report.Outputs))
	for name := range report.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "output %s: %s\n", name, describeEntry(report.Outputs[name])); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "flow: %s\n", report.Success)
	return err
}

func detail(n nodeReport) string {
	if n.Error != "" {
		return n.Error
	}
	keys := make([]string, 0, len(n.Failures))
	for k := range n.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+n.Failures[k])
	}
	return strings.Join(parts, "; ")
}

func describeEntry(e entryReport) string {
	switch {
	case e.Error != nil:
		return e.State + " (" + e.Error.Error() + ")"
	case e.Data != nil:
		data, err := json.Marshal(e.Data)
		if err != nil {
			return e.State + " " + fmt.Sprint(e.Data)
		}
		return e.State + " " + string(data)
	case e.Type != nil:
		data, _ := json.Marshal(e.Type)
		return e.State + " " + string(data)
	}
	return e.State
}

func writeDefinitions(w io.Writer, metas []*flow.NodeMeta) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tCATEGORY\tINPUTS\tOUTPUTS")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Version, orDash(m.Category), entryNames(m.Inputs), entryNames(m.Outputs))
	}
	return tw.Flush()
}

func entryNames(entries []flow.NodeEntry) string {
	if len(entries) == 0 {
		return "-"
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
