// Package config defines the SocConfig schema (§6 External Interfaces)
// and a Validate pass the SoC builder's DRC phase can run. Records are
// plain structs decoded with encoding/json — the configuration *loader*
// that reads a file from disk is explicitly out of the core's scope, but
// the schema and its validation are not.
package config

import "fmt"

// Default queue depths and epoch costs, used when a config record leaves
// the matching field at its zero value.
const (
	DefaultQueueDepth = 3
	DefaultEpochCycles = 10
	DefaultLineBytes   = 64
)

// CacheGeomConfig is the geometry shared by every cache agent config.
type CacheGeomConfig struct {
	SetsN      int `json:"sets_n"`
	WaysN      int `json:"ways_n"`
	LineBytesN int `json:"line_bytes_n"`
}

// withDefaults returns g with zero fields replaced by implementation
// defaults.
func (g CacheGeomConfig) withDefaults() CacheGeomConfig {
	if g.SetsN == 0 {
		g.SetsN = 4
	}

	if g.WaysN == 0 {
		g.WaysN = 2
	}

	if g.LineBytesN == 0 {
		g.LineBytesN = DefaultLineBytes
	}

	return g
}

// CpuConfig configures one CPU within a cluster.
type CpuConfig struct {
	ID int `json:"id"`
}

// L1CacheAgentConfig configures one per-CPU private L1.
type L1CacheAgentConfig struct {
	Geometry      CacheGeomConfig `json:"geometry"`
	QueueDepth    int             `json:"queue_depth"`
	EpochCycles   int             `json:"epoch_cycles"`
}

// L2CacheAgentConfig configures the one L2 shared by a cluster.
type L2CacheAgentConfig struct {
	Geometry    CacheGeomConfig `json:"geometry"`
	QueueDepth  int             `json:"queue_depth"`
	EpochCycles int             `json:"epoch_cycles"`
}

// CCAgentConfig configures a cluster's cache controller.
type CCAgentConfig struct {
	QueueDepth     int `json:"queue_depth"`
	EpochCycles    int `json:"epoch_cycles"`
	TxnTableDepth  int `json:"txn_table_depth"`
}

// CpuClusterConfig configures one cluster: its CC, its shared L2, the
// per-CPU L1s and CPUs.
type CpuClusterConfig struct {
	Name  string               `json:"name"`
	CC    CCAgentConfig        `json:"cc"`
	L2    L2CacheAgentConfig   `json:"l2"`
	L1s   []L1CacheAgentConfig `json:"l1s"`
	CPUs  []CpuConfig          `json:"cpus"`
}

// LLCConfig configures the LLC co-located with a directory.
type LLCConfig struct {
	Geometry      CacheGeomConfig `json:"geometry"`
	FillLatencyNs float64         `json:"fill_latency_ns"`
	QueueDepth    int             `json:"queue_depth"`
}

// DirAgentConfig configures one directory agent and its LLC.
type DirAgentConfig struct {
	Name          string    `json:"name"`
	TxnTableDepth int       `json:"txn_table_depth"`
	QueueDepth    int       `json:"queue_depth"`
	LLC           LLCConfig `json:"llc"`
}

// MemModelConfig configures one fixed-latency memory controller.
type MemModelConfig struct {
	Name        string  `json:"name"`
	LatencyNs   float64 `json:"latency_ns"`
	QueueDepth  int     `json:"queue_depth"`
}

// NocModelConfig configures the per-ingress queue depths of the NOC.
type NocModelConfig struct {
	IngressQueueDepth int `json:"ingress_queue_depth"`
	CreditsPerClass   int `json:"credits_per_class"`
}

// StimulusKind names which Stimulus implementation to build.
type StimulusKind string

// Supported stimulus kinds.
const (
	StimulusTrace       StimulusKind = "Trace"
	StimulusProgrammatic StimulusKind = "Programmatic"
)

// StimulusConfig configures the stimulus stream.
type StimulusConfig struct {
	Type     StimulusKind `json:"type"`
	Filename string       `json:"filename,omitempty"`
}

// SocConfig is the top-level configuration record for one simulation run.
type SocConfig struct {
	Name         string             `json:"name"`
	Protocol     string             `json:"protocol"`
	EnableVerif  bool               `json:"enable_verif"`
	EnableStats  bool               `json:"enable_stats"`
	Clusters     []CpuClusterConfig `json:"clusters"`
	Dirs         []DirAgentConfig   `json:"dirs"`
	Mems         []MemModelConfig   `json:"mems"`
	Noc          NocModelConfig     `json:"noc"`
	Stimulus     StimulusConfig     `json:"stimulus"`
}

// Validate runs the configuration-error checks §7 category 1 names:
// missing protocol name, empty cluster/dir/mem lists, mismatched CPU/L1
// counts, and a stimulus filename required for the Trace kind. It does
// not resolve the protocol name against a Registry — that's the
// builder's job, since only it knows which names are registered.
func (c *SocConfig) Validate() error {
	if c.Protocol == "" {
		return fmt.Errorf("config: protocol name is required")
	}

	if len(c.Clusters) == 0 {
		return fmt.Errorf("config: at least one cluster is required")
	}

	if len(c.Dirs) == 0 {
		return fmt.Errorf("config: at least one directory is required")
	}

	if len(c.Mems) == 0 {
		return fmt.Errorf("config: at least one memory controller is required")
	}

	for i, cl := range c.Clusters {
		if len(cl.CPUs) != len(cl.L1s) {
			return fmt.Errorf(
				"config: cluster %d (%s) has %d cpus but %d l1 configs",
				i, cl.Name, len(cl.CPUs), len(cl.L1s))
		}
	}

	if c.Stimulus.Type == StimulusTrace && c.Stimulus.Filename == "" {
		return fmt.Errorf("config: trace stimulus requires a filename")
	}

	if c.Stimulus.Type != StimulusTrace && c.Stimulus.Type != StimulusProgrammatic {
		return fmt.Errorf("config: unknown stimulus type %q", c.Stimulus.Type)
	}

	return nil
}

// ApplyDefaults fills every zero-valued queue depth, epoch cost and cache
// geometry field with its implementation-defined default, in place. It
// is called once, by the SoC builder, after Validate succeeds.
func (c *SocConfig) ApplyDefaults() {
	if c.Noc.IngressQueueDepth == 0 {
		c.Noc.IngressQueueDepth = DefaultQueueDepth
	}

	if c.Noc.CreditsPerClass == 0 {
		c.Noc.CreditsPerClass = DefaultQueueDepth
	}

	for ci := range c.Clusters {
		cl := &c.Clusters[ci]

		cl.L2.Geometry = cl.L2.Geometry.withDefaults()
		if cl.L2.QueueDepth == 0 {
			cl.L2.QueueDepth = DefaultQueueDepth
		}
		if cl.L2.EpochCycles == 0 {
			cl.L2.EpochCycles = DefaultEpochCycles
		}

		if cl.CC.QueueDepth == 0 {
			cl.CC.QueueDepth = DefaultQueueDepth
		}
		if cl.CC.EpochCycles == 0 {
			cl.CC.EpochCycles = DefaultEpochCycles
		}
		if cl.CC.TxnTableDepth == 0 {
			cl.CC.TxnTableDepth = DefaultQueueDepth
		}

		for li := range cl.L1s {
			l1 := &cl.L1s[li]
			l1.Geometry = l1.Geometry.withDefaults()

			if l1.QueueDepth == 0 {
				l1.QueueDepth = DefaultQueueDepth
			}
			if l1.EpochCycles == 0 {
				l1.EpochCycles = DefaultEpochCycles
			}
		}
	}

	for di := range c.Dirs {
		d := &c.Dirs[di]

		if d.TxnTableDepth == 0 {
			d.TxnTableDepth = DefaultQueueDepth
		}
		if d.QueueDepth == 0 {
			d.QueueDepth = DefaultQueueDepth
		}

		d.LLC.Geometry = d.LLC.Geometry.withDefaults()
		if d.LLC.QueueDepth == 0 {
			d.LLC.QueueDepth = DefaultQueueDepth
		}
	}

	for mi := range c.Mems {
		m := &c.Mems[mi]
		if m.QueueDepth == 0 {
			m.QueueDepth = DefaultQueueDepth
		}
	}
}
