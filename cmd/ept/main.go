// Command ept is the thin front end over the indexing core: build, merge,
// scan, and info subcommands, each driven by a JSON config file. Parsing
// LAS/LAZ, reprojection, and anything beyond wiring config to the core are
// explicitly out of scope here.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hobu-inc/ept/builder"
	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/chunkcache"
	"github.com/hobu-inc/ept/clipper"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/config"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/manifest"
	"github.com/hobu-inc/ept/metadata"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/source"
	"github.com/hobu-inc/ept/subset"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "build":
		err = runBuild(args)
	case "scan":
		err = runScan(args)
	case "merge":
		err = runMerge(args)
	case "info":
		err = runInfo(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "ept:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ept <build|merge|scan|info> -config <path>")
}

func codecByName(name string) (codec.Codec, error) {
	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	return c, nil
}

func resolveBounds(entries []manifest.Entry) point.Bounds {
	return manifest.UnionBounds(entries).Cubify()
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to build config JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("build: -config is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	out, err := endpoint.NewLocal(cfg.Output)
	if err != nil {
		return err
	}
	cdc, err := codecByName(cfg.Codec)
	if err != nil {
		return err
	}
	opener := source.CSVOpener{}

	ctx := context.Background()
	m := manifest.Scan(ctx, cfg.Input, opener)

	conforming := manifest.UnionBounds(m.Entries())
	root := conforming.Cubify()
	if cfg.SubsetOf > 1 {
		s, err := subset.New(cfg.SubsetID, cfg.SubsetOf)
		if err != nil {
			return err
		}
		root = s.SubBounds(root)
	}

	bCfg := builder.Config{
		Threads:          cfg.Threads,
		Limit:            cfg.Limit,
		Root:             root,
		ConformingBounds: conforming,
		SRS:              cfg.SRS,
		Codec:            cfg.Codec,
		SubsetID:         cfg.SubsetID,
		SubsetOf:         cfg.SubsetOf,
		DataDir:          "ept-data",
		SourcesDir:       "ept-sources",
		ChunkConfig: chunk.Config{
			BodySpan:      cfg.BodySpan(),
			OverflowDepth: cfg.OverflowDepth,
			MinNodeSize:   cfg.MinNodeSize,
			MaxNodeSize:   cfg.MaxNodeSize,
			OverflowRatio: cfg.OverflowRatio,
		},
		ClipperConfig: clipper.Config{
			SleepCount:    cfg.SleepCount,
			MinClipDepth:  cfg.MinClipDepth,
			ClipCacheSize: cfg.ClipCacheSize,
		},
		Retry: chunkcache.DefaultRetryPolicy(),
		Log:   log,
	}
	if cfg.SubsetOf > 1 {
		s, _ := subset.New(cfg.SubsetID, cfg.SubsetOf)
		bCfg.SubsetPostfix = s.Postfix()
	}

	bd := builder.New(bCfg, out, cdc, opener, m)
	if err := bd.Run(ctx); err != nil {
		return err
	}
	return bd.Save(ctx)
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", "", "path to build config JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	m := manifest.Scan(context.Background(), cfg.Input, source.CSVOpener{})
	for _, e := range m.Entries() {
		fmt.Printf("%d\t%s\t%s\t%d points\n", e.Origin, e.Path, e.Status, e.PointCount)
	}
	return nil
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	configPath := fs.String("config", "", "path to merge config JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("merge: -config is required")
	}

	cfg, err := config.LoadMergeFile(*configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	out, err := endpoint.NewLocal(cfg.Output)
	if err != nil {
		return err
	}
	cdc, err := codecByName(cfg.Codec)
	if err != nil {
		return err
	}

	root := cfg.Root()
	dstHier := hierarchy.New()
	cacheCfg := chunkcache.Config{
		ChunkConfig: chunk.Config{
			BodySpan:      cfg.BodySpan(),
			OverflowDepth: cfg.OverflowDepth,
			MinNodeSize:   cfg.MinNodeSize,
			MaxNodeSize:   cfg.MaxNodeSize,
			OverflowRatio: cfg.OverflowRatio,
		},
		Root:    root,
		DataDir: "ept-data",
		Retry: chunkcache.RetryPolicy{
			InitialInterval: time.Duration(cfg.Retry.InitialMillis) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.Retry.MaxMillis) * time.Millisecond,
			MaxElapsedTime:  time.Duration(cfg.Retry.MaxElapsedMillis) * time.Millisecond,
		},
		Log: log,
	}
	dstCache := chunkcache.New(cacheCfg, dstHier, cdc, out)

	ctx := context.Background()
	of := uint64(len(cfg.Subsets))
	var schema point.Schema
	var srs string
	var points, overflowed uint64
	for id, dir := range cfg.Subsets {
		s, err := subset.New(uint64(id), of)
		if err != nil {
			return err
		}
		srcOut, err := endpoint.NewLocal(dir)
		if err != nil {
			return err
		}
		srcMeta, err := metadata.Load(ctx, srcOut, s.Postfix())
		if err != nil {
			return errors.Wrapf(err, "merge: read metadata for subset %d", id)
		}
		if id == 0 {
			schema, srs = srcMeta.Schema, srcMeta.SRS
		}
		points += srcMeta.PointCount
		overflowed += srcMeta.Overflowed

		srcHier := hierarchy.New()
		if err := srcHier.Load(endpoint.HierarchyStore{Endpoint: srcOut, Ctx: ctx, Dir: "ept-hierarchy"}, s.Postfix()); err != nil {
			return err
		}
		src := subset.Source{
			Hierarchy: srcHier,
			Out:       srcOut,
			Codec:     cdc,
			DataDir:   "ept-data",
			Schema:    srcMeta.Schema,
		}
		if err := subset.Merge(ctx, dstCache, dstHier, src, cfg.OverflowDepth); err != nil {
			return err
		}
	}

	if err := dstCache.Flush(ctx); err != nil {
		return err
	}
	if err := dstHier.Save(endpoint.HierarchyStore{Endpoint: out, Ctx: ctx, Dir: "ept-hierarchy"}, ""); err != nil {
		return err
	}

	md := metadata.New()
	md.Schema = schema
	md.SRS = srs
	md.Codec = cfg.Codec
	md.CubeBoundsMin = cfg.RootMin
	md.CubeBoundsMax = cfg.RootMax
	md.ConformingBoundsMin = cfg.RootMin
	md.ConformingBoundsMax = cfg.RootMax
	md.HierarchyStep = dstHier.Step()
	md.PointCount = points
	md.Overflowed = overflowed
	return md.Save(ctx, out, "")
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := fs.String("config", "", "path to build config JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("info: -config is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	m := manifest.Scan(context.Background(), cfg.Input, source.CSVOpener{})
	entries := m.Entries()
	root := resolveBounds(entries)

	var total uint64
	for _, e := range entries {
		total += e.PointCount
	}

	fmt.Printf("inputs: %d\n", len(entries))
	fmt.Printf("points: %d\n", total)
	fmt.Printf("bounds: [%.3f %.3f %.3f] - [%.3f %.3f %.3f]\n",
		root.Min.X, root.Min.Y, root.Min.Z, root.Max.X, root.Max.Y, root.Max.Z)
	return nil
}
