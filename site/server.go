// Package main serves a site's build output from memory.
//
// Usage:
//
//	server [serve] [-config config.toml] [-dir dist] [-port 8080]
//	server check [-config config.toml] [-json]
//	server compress [-config config.toml] [-level 9] [-min-size 256]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/config"
	"github.com/f4ah6o/magicserver-go/internal/linkcheck"
	"github.com/f4ah6o/magicserver-go/internal/logger"
	"github.com/f4ah6o/magicserver-go/internal/precompress"
	"github.com/f4ah6o/magicserver-go/internal/server"
)

const defaultConfig = "config.toml"

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "check":
		err = runCheck(args)
	case "compress":
		err = runCompress(args)
	default:
		err = fmt.Errorf("unknown command %q (want serve, check or compress)", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// configFlags registers the flags shared by every command.
type configFlags struct {
	path string
	dir  string
	port int
}

func (c *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.path, "config", defaultConfig, "Config file (.toml, .yaml or .yml)")
	fs.StringVar(&c.dir, "dir", "", "Build output directory, overrides dirs.out")
	fs.IntVar(&c.port, "port", 0, "Port to serve on, overrides port")
}

// load reads the config file, falling back to config.yaml next to the default
// path, and finally to a config built from flags alone when -dir is set.
func (c *configFlags) load() (*config.Config, error) {
	path := c.path
	if path == defaultConfig && !exists(path) && exists("config.yaml") {
		path = "config.yaml"
	}

	cfg := &config.Config{}
	switch {
	case exists(path):
		read, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = read
	case c.dir == "":
		return nil, fmt.Errorf("config %s not found and -dir not set", path)
	}

	if c.dir != "" {
		abs, err := filepath.Abs(c.dir)
		if err != nil {
			return nil, fmt.Errorf("resolve directory: %w", err)
		}
		cfg.Dirs.Out = abs
	}
	if c.port != 0 {
		cfg.Port = c.port
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func buildCatalog(cfg *config.Config, l *logger.Logger) (*catalog.Catalog, error) {
	l.Infof("collecting files in %s", filepath.Join(cfg.Dirs.Out, catalog.AnyDepth(cfg.Server.Files)))
	cat, err := catalog.Build(cfg.Dirs.Out, cfg.Server.Files)
	if err != nil {
		return nil, err
	}
	l.Infof("found %d files (%s)", cat.Len(), humanize.Bytes(uint64(cat.Size())))
	return cat, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	fs.Parse(args)

	cfg, err := cf.load()
	if err != nil {
		return err
	}

	l := logger.Default()
	cat, err := buildCatalog(cfg, l)
	if err != nil {
		return err
	}

	srv, err := server.Start(cat, cfg, l)
	if err != nil {
		return err
	}
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-srv.Done():
		return srv.Wait()
	case <-ctx.Done():
	}
	stop()

	l.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return srv.Wait()
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	jsonOutput := fs.Bool("json", false, "Print the report as JSON")
	fs.Parse(args)

	cfg, err := cf.load()
	if err != nil {
		return err
	}

	l := logger.New(os.Stderr, false)
	cat, err := buildCatalog(cfg, l)
	if err != nil {
		return err
	}

	report, err := linkcheck.Check(cat, cfg)
	if err != nil {
		return err
	}
	if *jsonOutput {
		err = linkcheck.WriteJSON(os.Stdout, report)
	} else {
		err = linkcheck.WriteText(os.Stdout, report)
	}
	if err != nil {
		return err
	}
	if !report.OK() {
		os.Exit(1)
	}
	return nil
}

func runCompress(args []string) error {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	level := fs.Int("level", 0, "gzip level (0 = best compression)")
	minSize := fs.Int("min-size", precompress.DefaultMinSize, "Skip files smaller than this many bytes (0 disables the floor)")
	fs.Parse(args)

	cfg, err := cf.load()
	if err != nil {
		return err
	}

	l := logger.Default()
	l.Infof("compressing files in %s", filepath.Join(cfg.Dirs.Out, catalog.AnyDepth(cfg.Server.Files)))
	res, err := precompress.Dir(cfg.Dirs.Out, cfg.Server.Files, precompress.Options{
		Level:   *level,
		MinSize: *minSize,
	})
	if err != nil {
		return err
	}
	l.Successf("wrote %s", res)
	return nil
}
