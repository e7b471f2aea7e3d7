// Command cqlbench opens a session against a static seed of contact points
// and fires a configurable number of concurrent selects against one table,
// reporting latency and error counts. It is a load-generation harness, not a
// general-purpose CQL shell: no interactive REPL, no arbitrary statement
// input.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cqlshard/driver/cluster"
	"github.com/cqlshard/driver/cluster/ring"
	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/cql/partitioner"
	"github.com/cqlshard/driver/driver"
	"github.com/cqlshard/driver/internal/config"
	"github.com/cqlshard/driver/internal/log"
	"github.com/cqlshard/driver/metrics"
	"github.com/cqlshard/driver/transport/node"
	"github.com/cqlshard/driver/transport/stage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML seed file (contact points, keyspaces)")
	envPath := flag.String("env", ".env", "path to a .env file (optional)")
	keyspace := flag.String("keyspace", "bench", "keyspace to run the select against")
	statement := flag.String("statement", "SELECT * FROM bench.widgets WHERE id = ?", "statement to run, with one bound value")
	concurrency := flag.Int("concurrency", 32, "number of concurrent in-flight selects")
	total := flag.Int("total", 10000, "total number of selects to issue")
	shardCount := flag.Int("shards", 1, "shards per contact point")
	appendsNum := flag.Int("appends", 128, "stream ids per reporter")
	flag.Parse()

	logger, err := log.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlbench: logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*envPath, *configPath)
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		os.Exit(1)
	}
	if len(cfg.ContactPoints) == 0 {
		fmt.Fprintln(os.Stderr, "cqlbench: no contact points configured (use -config or CQLSHARD_CONTACT_POINTS)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New(prometheus.NewRegistry())
	owner := &staticTokenOwner{}
	cl := cluster.New(owner).WithMetrics(reg)

	for i, host := range cfg.ContactPoints {
		n, err := node.New(node.Config{
			ID:          host,
			Host:        host,
			ShardCount:  *shardCount,
			CommonPort:  cfg.CommonPort,
			ShardPort:   cfg.ShardPortBase + i,
			AppendsNum:  *appendsNum,
			Compression: cfg.Compression,
			DialOpts: stage.Config{
				ReporterCount: 1,
				Metrics:       reg,
				Logger:        logger,
				DialTimeout:   cfg.DialTimeout,
			},
		}, cl.PrepCache())
		if err != nil {
			logger.Error("node init failed", zap.Error(err))
			os.Exit(1)
		}
		cl.AddNode(n)
		go n.Run(ctx)
	}

	if err := cl.BuildRing(ctx, ring.SimpleStrategy{ReplicationFactor: len(cfg.ContactPoints)}); err != nil {
		logger.Error("initial ring build failed", zap.Error(err))
		os.Exit(1)
	}
	stopRebuild, err := cl.StartPeriodicRebuild(ctx, ring.SimpleStrategy{ReplicationFactor: len(cfg.ContactPoints)}, cfg.RingRefresh)
	if err != nil {
		logger.Error("periodic rebuild schedule failed", zap.Error(err))
		os.Exit(1)
	}
	defer stopRebuild()

	sess := driver.NewSession(cl, reg, logger)
	ks := sess.Keyspace(*keyspace)

	runBench(ctx, ks, *statement, *concurrency, *total, logger)
}

func runBench(ctx context.Context, ks *driver.Keyspace, statement string, concurrency, total int, logger *log.Logger) {
	var ok, failed int64
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()

			key := partitioner.BuildPartitionKey([][]byte{[]byte(strconv.Itoa(i))})
			req := ks.Select(statement, key, frame.BoundValue([]byte(strconv.Itoa(i))))

			reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			outcome, err := req.SendGlobal(reqCtx)
			if err != nil || (outcome != nil && outcome.Err != nil) {
				atomic.AddInt64(&failed, 1)
				return
			}
			atomic.AddInt64(&ok, 1)
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	logger.Info("bench complete",
		zap.Int64("ok", atomic.LoadInt64(&ok)),
		zap.Int64("failed", atomic.LoadInt64(&failed)),
		zap.Duration("elapsed", elapsed),
	)
}

// staticTokenOwner is a placeholder TokenOwner for the benchmark binary: it
// assigns every node a single fixed token rather than querying
// system.local/system.peers, since this harness targets a pre-seeded
// single-token ring rather than discovering live topology.
type staticTokenOwner struct{}

func (staticTokenOwner) OwnedTokens(_ context.Context, n *node.Node) (string, []ring.Endpoint, error) {
	tok := partitioner.HashToken([]byte(n.ID()))
	return "dc1", []ring.Endpoint{{Token: tok, NodeID: n.ID(), ShardID: 0}}, nil
}
