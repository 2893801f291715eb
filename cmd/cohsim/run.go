package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/archsim/cohmesh/config"
	"github.com/archsim/cohmesh/monitor"
	"github.com/archsim/cohmesh/protocol"
	"github.com/archsim/cohmesh/protocol/moesi"
	"github.com/archsim/cohmesh/soc"
	"github.com/archsim/cohmesh/stimulus"
)

var (
	configPath string
	statsAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Elaborate a config file and run the simulation.",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a SocConfig JSON file (required)")
	runCmd.Flags().StringVar(&statsAddr, "stats-addr", ":8080", "address the stats HTTP server listens on")

	if err := runCmd.MarkFlagRequired("config"); err != nil {
		log.Panicf("cohsim: %v", err)
	}

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	registry := protocol.NewRegistry()
	registry.Register(moesi.Name, moesi.New())

	ctx, err := buildStimulus(cfg)
	if err != nil {
		return err
	}

	sys, err := soc.Build(cfg, registry, ctx)
	if err != nil {
		return err
	}

	if cfg.EnableStats {
		recorder := monitor.Attach(sys)
		go serveStats(statsAddr, recorder)
	}

	fmt.Fprintf(os.Stdout, "cohsim: running %q on %d clusters, %d directories, %d memory controllers\n",
		cfg.Name, len(cfg.Clusters), len(cfg.Dirs), len(cfg.Mems))

	if err := sys.Sequencer.Run(); err != nil {
		return fmt.Errorf("cohsim: %w", err)
	}

	return nil
}

func loadConfig(path string) (*config.SocConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cohsim: %w", err)
	}
	defer f.Close()

	cfg := &config.SocConfig{}
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("cohsim: decoding %s: %w", path, err)
	}

	return cfg, nil
}

// buildStimulus resolves cfg.Stimulus into the Context every CPU in the
// fabric polls: a Trace read from its configured file, or an empty
// Programmatic source seeded with every configured CPU ID, ready for a
// caller embedding cohsim as a library to push commands onto directly.
func buildStimulus(cfg *config.SocConfig) (stimulus.Context, error) {
	switch cfg.Stimulus.Type {
	case config.StimulusTrace:
		f, err := os.Open(cfg.Stimulus.Filename)
		if err != nil {
			return nil, fmt.Errorf("cohsim: %w", err)
		}
		defer f.Close()

		tr, err := stimulus.NewTraceFromReader(f)
		if err != nil {
			return nil, fmt.Errorf("cohsim: reading trace %s: %w", cfg.Stimulus.Filename, err)
		}

		return tr, nil
	default:
		var cpuIDs []int
		for _, cl := range cfg.Clusters {
			for _, cpu := range cl.CPUs {
				cpuIDs = append(cpuIDs, cpu.ID)
			}
		}

		return stimulus.NewProgrammatic(cpuIDs), nil
	}
}

func serveStats(addr string, r *monitor.Recorder) {
	if err := http.ListenAndServe(addr, r.Router()); err != nil { //nolint:gosec
		log.Printf("cohsim: stats server stopped: %v", err)
	}
}
