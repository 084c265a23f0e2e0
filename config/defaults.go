// SPDX-License-Identifier: MIT

// Package config holds the tunable constants shared by the storage engine,
// ingestion pipelines and the label search stack: write-buffer sizes,
// PageRank parameters, fusion weights and search limits.
package config

import "github.com/c2h5oh/datasize"

// Write buffering (spec §4.2).
const (
	// DefaultBuffLimit is the default aggregate write-buffer byte budget
	// across all columns of a store, before a flush is triggered.
	DefaultBuffLimit = 1 * datasize.GB

	// MaxBuffLimitFraction is a fraction of total system RAM (10%) for
	// the write-buffer budget. No package reads it: store.Open uses
	// the DefaultBuffLimit value or WithBuffLimit's value as given,
	// without comparing it to system RAM.
	MaxBuffLimitFraction = 0.10

	// MapGrowIncrement is a 5GB map-growth step for capacity exhaustion.
	// No package reads it: the store never resizes the backing map
	// itself; a failed write batch is retried once as it is.
	MapGrowIncrement = 5 * datasize.GB

	// DefaultDeletesBuffLimit is a SymDelete write-buffer bound for the
	// "en" language configuration (spec §4.8). No package reads it:
	// symdelete writes through the store's shared write buffer.
	DefaultDeletesBuffLimit = 32_000_000

	// AllLangDeletesBuffLimit is the corresponding bound for the
	// all-language SymDelete configuration; like DefaultDeletesBuffLimit,
	// no package reads it.
	AllLangDeletesBuffLimit = 150_000_000
)

// Claim edge weights used when assembling the PageRank graph (spec §4.6).
const (
	WeightWikidata   = 3.0
	WeightTypes      = 1.0
	WeightWikiOthers = 1.0
)

// PageRank power-iteration defaults (spec §4.6).
const (
	PageRankAlpha   = 0.85
	PageRankTol     = 1e-6
	PageRankMaxIter = 1000
)

// Search limits (spec §4.7, §4.9, §5).
const (
	LimitSearch    = 50   // default top-N per ranked label lookup
	LimitSearchES  = 1000 // bound on external text-index hits considered
	LimitGenCan    = 50   // bound on generated fuzzy candidates
	LimitFusion    = 20   // default final result count from SearchFusion
	DefaultRankCap = 1000 // cap on LABEL->RANKED_* lists per label
)

// SearchFusion score weights (spec §4.9), English path.
const (
	FusionWeightText      = 0.4
	FusionWeightPrior     = 0.3
	FusionWeightLabel     = 0.3
	FusionWeightMainLabel = 0.001
)

// SymDelete defaults (spec §4.8).
const (
	DefaultMaxEditDistance = 2
	DefaultPrefixLen       = 10
)

// RankedListCap bounds each of the three (entity/type/property) ranked
// lists a label's LABEL_RANKED_EN/ALL entry holds (spec §4.7).
const RankedListCap = 1000

// IdentifierClassQIDs names Wikidata items whose P31/P279 claims mark an
// entity as representing an external-database identifier rather than a
// real-world thing (spec §6 ingest step 3). An entity whose instance-of
// or subclass-of claims intersect this set is skipped during info
// ingestion, mirroring db_wikidata.py's WIKIDATA_IDENTIFIERS.intersection
// check against instance_ofs/subclass_ofs. The original loads this set
// from an external WD_IDENTIFIERS.tsv data file; that file ships outside
// the dump tree this module ingests, so this is seeded with the
// well-known Wikidata metaclass for identifier-representing items and is
// meant to be extended as more identifier-class QIDs are catalogued.
var IdentifierClassQIDs = map[string]bool{
	"Q19847637": true, // Wikidata metaclass for stand-alone instance items representing a legitimate concept that is also used as if it were a value of some Wikidata property, e.g. for identifiers
}
