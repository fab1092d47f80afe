// Command procq queries a running procinfo server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"procinfo/api"
	"procinfo/models"
	"procinfo/query"
)

func main() {
	var (
		addr         string
		id           int64
		minUsage     float64
		minRSSKB     uint64
		minRuntimeMS uint64
		settleMS     uint64
		jsonOut      bool
		health       bool
	)

	flag.StringVar(&addr, "addr", "http://127.0.0.1:8080", "Base URL of the procinfo server")
	flag.Int64Var(&id, "id", 0, "Restrict to one process id")
	flag.Float64Var(&minUsage, "min-usage", 0, "Keep processes with CPU usage above this percent")
	flag.Uint64Var(&minRSSKB, "min-rss-kb", 0, "Keep processes with resident memory above this many KiB")
	flag.Uint64Var(&minRuntimeMS, "min-runtime-ms", 0, "Keep processes running longer than this many ms")
	flag.Uint64Var(&settleMS, "settle-ms", 500, "Delay between the two samples")
	flag.BoolVar(&jsonOut, "json", false, "Print raw JSON")
	flag.BoolVar(&health, "health", false, "Print server health and exit")
	flag.Parse()

	// only flags given on the command line become filters
	var f query.Filter
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "id":
			f.PID = &id
		case "min-usage":
			f.MinUsage = &minUsage
		case "min-rss-kb":
			f.MinRSSKB = &minRSSKB
		case "min-runtime-ms":
			f.MinRuntimeMS = &minRuntimeMS
		case "settle-ms":
			f.SettleMS = &settleMS
		}
	})

	timeout := time.Duration(settleMS)*time.Millisecond + 30*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := api.NewClient(addr, timeout)

	if health {
		h, err := client.Health(ctx)
		if err != nil {
			fatal(err)
		}
		printJSON(h)
		return
	}

	procs, err := client.Processes(ctx, f)
	if err != nil {
		fatal(err)
	}

	if jsonOut {
		printJSON(procs)
		return
	}
	printTable(procs)
}

func printTable(procs []models.ProcessMetrics) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PID\tCPU%\tRSS KiB\tVSZ KiB\tRUNTIME\tNAME\t")
	for _, p := range procs {
		runtime := time.Duration(p.RuntimeMS) * time.Millisecond
		fmt.Fprintf(w, "%d\t%.1f\t%d\t%d\t%s\t%s\t\n", p.PID, p.Usage, p.RSS/1024, p.VSZ/1024, runtime, p.Name)
	}
	_ = w.Flush()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "procq:", err)
	os.Exit(1)
}
