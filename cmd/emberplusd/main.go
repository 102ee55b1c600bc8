package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"

	emberplus "github.com/jp-jp-jp/node-emberplus"
	"github.com/jp-jp-jp/node-emberplus/ember"
)

const EmberPlusDVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Ember+ server.

Usage:
    emberplusd run [--bind=<address>] [--keepalive=<seconds>] [--metrics_bind=<address>]

Options:
    -h --help                    Show this screen.
    --version                    Show version.
    --bind=<address>              Address to bind the Ember+ S101 listener [default: :9000]
    --keepalive=<seconds>         Keepalive interval in seconds [default: 10]
    --metrics_bind=<address>      Address to bind the Prometheus /metrics endpoint [default: :9090]`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], EmberPlusDVersion)
	if err != nil {
		panic(err)
	}

	if run_, _ := opts.Bool("run"); run_ {
		run(opts)
	}
}

func run(opts docopt.Opts) {
	bindAddress, _ := opts.String("--bind")
	metricsBindAddress, _ := opts.String("--metrics_bind")

	keepaliveSeconds := 10
	if s, err := opts.Int("--keepalive"); err == nil {
		keepaliveSeconds = s
	}

	settings := emberplus.DefaultServerSettings(bindAddress)
	settings.Connection.KeepaliveInterval = time.Duration(keepaliveSeconds) * time.Second

	tree := demoTree()
	server := emberplus.NewServer(settings, tree)

	metrics := emberplus.NewMetrics(prometheus.DefaultRegisterer)
	metrics.Attach(server)

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalNotify := make(chan os.Signal, 1)
	signal.Notify(signalNotify, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signalNotify
		cancel()
	}()

	if err := server.Listen(cancelCtx); err != nil {
		Err.Fatalf("listen: %s", err)
	}
	metrics.AttachListener(server.Listener())

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsBindAddress, nil); err != nil {
			Err.Printf("metrics server: %s", err)
		}
	}()

	Out.Printf("emberplusd listening on %s (metrics on %s)\n", bindAddress, metricsBindAddress)
	if err := server.Serve(); err != nil {
		Err.Fatalf("serve: %s", err)
	}
}

// demoTree builds a small illustrative tree in the absence of the
// JSON-configuration loader this server treats as an external
// collaborator: one node containing a read-write integer parameter and a
// 4x4 one-to-N matrix, enough to exercise get-directory, subscribe,
// parameter-set and matrix-connect end to end.
func demoTree() *ember.Tree {
	tree := ember.NewTree()

	root := tree.AddNode(ember.NoElement)
	tree.AddParameter(root.Id(), ember.ParameterAccessReadWrite, ember.ParameterTypeInteger, int64(10))
	matrix := tree.AddMatrix(root.Id(), 4, 4, ember.MatrixTypeOneToN, ember.MatrixModeLinear)
	tree.SetMatrixLabels(matrix.Id(), []string{"in0", "in1", "in2", "in3"})

	return tree
}
