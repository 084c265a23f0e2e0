// SPDX-License-Identifier: MIT

// kgraph-query serves SearchFusion entity search and Boolean claim
// queries over an HTTP API, modeled on cmd/webserver/main.go's
// flag-parsed port and promhttp.Handler() wiring, and also offers a
// "compact" subcommand for the store's copy-and-swap compaction.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kgraph/kgraph/config"
	"github.com/kgraph/kgraph/fusion"
	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/internal/klog"
	"github.com/kgraph/kgraph/invidx"
	"github.com/kgraph/kgraph/labelsearch"
	"github.com/kgraph/kgraph/store"
	"github.com/kgraph/kgraph/symdelete"
)

var logger = klog.Default

var queryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "kgraph_query_latency_seconds",
	Help:    "Latency of query requests, by endpoint.",
	Buckets: prometheus.DefBuckets,
}, []string{"endpoint"})

func init() {
	prometheus.MustRegister(queryLatency)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "compact" {
		return runCompact(args[1:])
	}

	fs := flag.NewFlagSet("kgraph-query", flag.ContinueOnError)
	storePath := fs.String("store", "kgraph.db", "path to the kgraph store file")
	port := fs.Int("port", 0, "port for serving HTTP requests")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *port == 0 {
		*port, _ = strconv.Atoi(os.Getenv("PORT"))
	}
	if *port == 0 {
		*port = 8080
	}

	s, err := store.Open(*storePath, buildSchema(), store.WithLogger(logger))
	if err != nil {
		logger.Printf("kgraph-query: open store: %v", err)
		return 4
	}
	defer s.Close()

	g, err := graph.Open(s)
	if err != nil {
		logger.Printf("kgraph-query: open graph: %v", err)
		return 4
	}
	labels, err := labelsearch.Open(g)
	if err != nil {
		logger.Printf("kgraph-query: open labels: %v", err)
		return 4
	}
	en := symdelete.Open(s, "en", config.DefaultMaxEditDistance, config.DefaultPrefixLen)

	engine := &fusion.Engine{G: g, Labels: labels, SymDelete: en}
	srv := &server{g: g, engine: engine}

	http.HandleFunc("/search", srv.handleSearch)
	http.HandleFunc("/boolean", srv.handleBoolean)
	http.Handle("/metrics", promhttp.Handler())
	logger.Printf("kgraph-query: listening on port %d", *port)
	if err := http.ListenAndServe(":"+strconv.Itoa(*port), nil); err != nil {
		logger.Printf("kgraph-query: serve: %v", err)
		return 4
	}
	return 0
}

func runCompact(args []string) int {
	fs := flag.NewFlagSet("kgraph-query compact", flag.ContinueOnError)
	storePath := fs.String("store", "kgraph.db", "path to the kgraph store file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := store.Open(*storePath, buildSchema(), store.WithLogger(logger))
	if err != nil {
		logger.Printf("kgraph-query: compact: open store: %v", err)
		return 4
	}
	defer s.Close()
	if err := s.Compact(); err != nil {
		logger.Printf("kgraph-query: compact: %v", err)
		return 4
	}
	logger.Printf("kgraph-query: compact: done")
	return 0
}

func buildSchema() store.Schema {
	var schema store.Schema
	schema = append(schema, graph.Schema...)
	schema = append(schema, labelsearch.Schema...)
	schema = append(schema, symdelete.Schema...)
	return schema
}

type server struct {
	g      *graph.GraphStore
	engine *fusion.Engine
}

// handleSearch answers GET /search?q=...&lang=en&limit=10 with
// SearchFusion's ranked entity/property hits (spec §4.9).
func (srv *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { queryLatency.WithLabelValues("search").Observe(time.Since(start).Seconds()) }()

	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "en"
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := srv.engine.Search(q, lang, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

// handleBoolean answers GET /boolean?p=+P31=Q5&p=-P27=Q30 with the set
// of entities satisfying the AND/OR/NOT claim predicates (spec §4.5).
// Each predicate is of the form [+-=]Pnnn=Qnnn: '+' means AND, '-' means
// NOT, '=' means OR.
func (srv *server) handleBoolean(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { queryLatency.WithLabelValues("boolean").Observe(time.Since(start).Seconds()) }()

	preds := r.URL.Query()["p"]
	if len(preds) == 0 {
		http.Error(w, "missing p parameter(s)", http.StatusBadRequest)
		return
	}

	q, err := srv.parseBooleanQuery(preds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bm, err := invidx.Eval(srv.g, q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		lid := it.Next()
		id, found, err := srv.g.I.LookupByLID(lid)
		if err != nil || !found {
			continue
		}
		ids = append(ids, id)
	}
	writeJSON(w, ids)
}

func (srv *server) parseBooleanQuery(preds []string) (invidx.Query, error) {
	clauses := map[invidx.Op][]invidx.Term{}
	andUnresolved := false
	for _, pred := range preds {
		if len(pred) < 2 {
			return invidx.Query{}, fmt.Errorf("invalid predicate %q", pred)
		}
		op := invidx.OpOr
		switch pred[0] {
		case '+':
			op = invidx.OpAnd
		case '-':
			op = invidx.OpNot
		case '=':
			op = invidx.OpOr
		default:
			return invidx.Query{}, fmt.Errorf("invalid predicate %q: must start with +, - or =", pred)
		}
		parts := strings.SplitN(pred[1:], "=", 2)
		if len(parts) != 2 {
			return invidx.Query{}, fmt.Errorf("invalid predicate %q: want PROP=OBJECT", pred)
		}
		propLID, found, err := srv.g.I.LookupByID(parts[0], false)
		if err != nil {
			return invidx.Query{}, err
		}
		if !found {
			andUnresolved = andUnresolved || op == invidx.OpAnd
			continue
		}
		objLID, found, err := srv.g.I.LookupByID(parts[1], false)
		if err != nil {
			return invidx.Query{}, err
		}
		if !found {
			andUnresolved = andUnresolved || op == invidx.OpAnd
			continue
		}
		clauses[op] = append(clauses[op], invidx.Term{Prop: propLID, Object: objLID})
	}
	if andUnresolved {
		// An AND predicate naming an unknown property or object matches
		// no entity, so the whole query is empty.
		return invidx.Query{}, nil
	}

	var q invidx.Query
	for _, op := range []invidx.Op{invidx.OpAnd, invidx.OpOr, invidx.OpNot} {
		if terms := clauses[op]; len(terms) > 0 {
			q.Clauses = append(q.Clauses, invidx.Clause{Op: op, Terms: terms})
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("kgraph-query: write response: %v", err)
	}
}
