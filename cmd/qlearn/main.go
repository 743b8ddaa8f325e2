/*
qlearn runs the summer-school exercises from the command line.

	qlearn ising    [--config file] [--plot out.png]
	qlearn classify [--config file] [--data file.csv] [--plot out.png] [--checkpoint model.msgpack]
	qlearn metrics  [--config file] [--wires 4] [--layers 2] [--samples 2000] [--bins 75]

Every setting can also come from QLEARN_* environment variables.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
	"github.com/theapemachine/qlearn"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "qlearn %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: qlearn <ising|classify|metrics> [flags]")
}

func run(ctx context.Context, command string, args []string) error {
	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "YAML config file")
	plotPath := flags.String("plot", "", "write the convergence curve to this image")
	dataPath := flags.String("data", "", "CSV dataset for the classifier")
	checkpoint := flags.String("checkpoint", "", "save the trained classifier here")
	steps := flags.Int("steps", 0, "override the number of optimizer steps")
	wires := flags.Int("wires", 4, "qubits for circuit metrics")
	layers := flags.Int("layers", 2, "layers for circuit metrics")
	samples := flags.Int("samples", 2000, "parameter pairs for circuit metrics")
	bins := flags.Int("bins", 75, "fidelity histogram bins")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := qlearn.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *plotPath != "" {
		cfg.Output.Plot = *plotPath
	}
	if *dataPath != "" {
		cfg.Classifier.Data = *dataPath
	}
	if *checkpoint != "" {
		cfg.Output.Checkpoint = *checkpoint
	}
	if *steps > 0 {
		cfg.Ising.Steps = *steps
		cfg.Classifier.Steps = *steps
	}

	session, err := qlearn.NewSession(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	switch command {
	case "ising":
		_, err = session.Ising(ctx, nil)
	case "classify":
		bar := progressbar.Default(int64(cfg.Classifier.Steps), "training")
		_, err = session.Classify(ctx, func(r qlearn.Record) {
			bar.Describe(fmt.Sprintf("cost %.4f acc %.2f", r.Cost, r.ValAcc))
			_ = bar.Add(1)
		})
		_ = bar.Finish()
	case "metrics":
		_, err = session.Metrics(ctx, *wires, *layers, *samples, *bins)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	m := session.Pool().Metrics().ExportMetrics()
	fmt.Printf("pool: %d workers, %v jobs, avg latency %vµs\n", m["worker_count"], m["jobs"], m["avg_latency"])
	return nil
}
