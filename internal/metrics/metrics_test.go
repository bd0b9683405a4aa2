package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSetBuildInfo(t *testing.T) {
	SetBuildInfo("v1.2.3", "abc123")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "iskwatch_build_info" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["version"] == "v1.2.3" && labels["commit"] == "abc123" && m.GetGauge().GetValue() == 1 {
				return
			}
		}
	}
	t.Error("iskwatch_build_info{version=v1.2.3,commit=abc123} not exported")
}
